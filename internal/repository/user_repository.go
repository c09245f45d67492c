package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, first_name, last_name, email, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Role,
		user.IsActive,
		user.CreatedAt,
	)

	return mapError(err, "insert user")
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, first_name, last_name, email, role, is_active, created_at
		FROM users
		WHERE id = $1
	`

	var user domain.User
	if err := sqlx.GetContext(ctx, r.db.conn(ctx), &user, query, id); err != nil {
		return nil, mapError(err, "get user")
	}

	return &user, nil
}
