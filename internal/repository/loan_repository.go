package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
)

const applicationColumns = `id, user_id, gender, date_of_birth, national_id, address, income, employment_type,
	loan_product_id, requested_amount, tenure_months, interest_rate,
	status, decision_date, decision_reason, is_active,
	created_at, created_by, modified_at, modified_by`

type applicationRepository struct {
	db *DB
}

func NewApplicationRepository(db *DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.LoanApplication) error {
	query := `
		INSERT INTO loan_applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		app.ID,
		app.UserID,
		app.Gender,
		app.DateOfBirth,
		app.NationalID,
		app.Address,
		app.Income,
		app.EmploymentType,
		app.LoanProductID,
		app.RequestedAmount,
		app.TenureMonths,
		app.InterestRate,
		app.Status,
		app.DecisionDate,
		app.DecisionReason,
		app.IsActive,
		app.CreatedAt,
		app.CreatedBy,
		app.ModifiedAt,
		app.ModifiedBy,
	)

	return mapError(err, "insert loan application")
}

func (r *applicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE id = $1`

	var app domain.LoanApplication
	if err := sqlx.GetContext(ctx, r.db.conn(ctx), &app, query, id); err != nil {
		return nil, mapError(err, "get loan application")
	}

	return &app, nil
}

func (r *applicationRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE id = $1 FOR UPDATE`

	var app domain.LoanApplication
	if err := sqlx.GetContext(ctx, r.db.conn(ctx), &app, query, id); err != nil {
		return nil, mapError(err, "lock loan application")
	}

	return &app, nil
}

func (r *applicationRepository) Update(ctx context.Context, app *domain.LoanApplication) error {
	query := `
		UPDATE loan_applications
		SET status = $2, decision_date = $3, decision_reason = $4, is_active = $5, modified_at = $6, modified_by = $7
		WHERE id = $1
	`

	res, err := r.db.conn(ctx).ExecContext(ctx, query,
		app.ID,
		app.Status,
		app.DecisionDate,
		app.DecisionReason,
		app.IsActive,
		app.ModifiedAt,
		app.ModifiedBy,
	)
	if err != nil {
		return mapError(err, "update loan application")
	}

	return requireAffected(res, "update loan application")
}

func (r *applicationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.LoanApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE user_id = $1 ORDER BY created_at DESC`

	var apps []*domain.LoanApplication
	if err := sqlx.SelectContext(ctx, r.db.conn(ctx), &apps, query, userID); err != nil {
		return nil, mapError(err, "list loan applications by user")
	}

	return apps, nil
}

func (r *applicationRepository) ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.LoanApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE status = $1 ORDER BY created_at DESC`

	var apps []*domain.LoanApplication
	if err := sqlx.SelectContext(ctx, r.db.conn(ctx), &apps, query, status); err != nil {
		return nil, mapError(err, "list loan applications by status")
	}

	return apps, nil
}

func (r *applicationRepository) ListAll(ctx context.Context) ([]*domain.LoanApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications ORDER BY created_at DESC`

	var apps []*domain.LoanApplication
	if err := sqlx.SelectContext(ctx, r.db.conn(ctx), &apps, query); err != nil {
		return nil, mapError(err, "list loan applications")
	}

	return apps, nil
}

func (r *applicationRepository) HasActiveLoan(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM loan_applications
			WHERE user_id = $1 AND is_active AND status IN ('Pending', 'Initial Review', 'Processing', 'Approved')
		)
	`

	var exists bool
	if err := sqlx.GetContext(ctx, r.db.conn(ctx), &exists, query, userID); err != nil {
		return false, mapError(err, "check active loan")
	}

	return exists, nil
}

func (r *applicationRepository) IsNationalIDUsed(ctx context.Context, nationalID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM loan_applications WHERE national_id = $1)`

	var exists bool
	if err := sqlx.GetContext(ctx, r.db.conn(ctx), &exists, query, nationalID); err != nil {
		return false, mapError(err, "check national id")
	}

	return exists, nil
}
