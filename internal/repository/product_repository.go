package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
)

const productColumns = `id, title, description, image_url, max_loan_amount, loan_type,
	interest_rate, tenure_months, processing_fee,
	minimum_salary, down_payment_percentage, gold_purity_required, repayment_type,
	is_active, created_at, created_by, modified_at, modified_by`

type productRepository struct {
	db *DB
}

func NewProductRepository(db *DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, p *domain.LoanProduct) error {
	query := `
		INSERT INTO loan_products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		p.ID,
		p.Title,
		p.Description,
		p.ImageURL,
		p.MaxLoanAmount,
		p.LoanType,
		p.InterestRate,
		p.TenureMonths,
		p.ProcessingFee,
		p.MinimumSalary,
		p.DownPaymentPercentage,
		p.GoldPurityRequired,
		p.RepaymentType,
		p.IsActive,
		p.CreatedAt,
		p.CreatedBy,
		p.ModifiedAt,
		p.ModifiedBy,
	)

	return mapError(err, "insert loan product")
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanProduct, error) {
	query := `SELECT ` + productColumns + ` FROM loan_products WHERE id = $1`

	var p domain.LoanProduct
	if err := sqlx.GetContext(ctx, r.db.conn(ctx), &p, query, id); err != nil {
		return nil, mapError(err, "get loan product")
	}

	return &p, nil
}

func (r *productRepository) List(ctx context.Context, activeOnly bool) ([]*domain.LoanProduct, error) {
	query := `SELECT ` + productColumns + ` FROM loan_products WHERE ($1 = false OR is_active) ORDER BY created_at`

	var products []*domain.LoanProduct
	if err := sqlx.SelectContext(ctx, r.db.conn(ctx), &products, query, activeOnly); err != nil {
		return nil, mapError(err, "list loan products")
	}

	return products, nil
}

func (r *productRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time, by string) error {
	query := `
		UPDATE loan_products
		SET is_active = false, modified_at = $2, modified_by = $3
		WHERE id = $1
	`

	res, err := r.db.conn(ctx).ExecContext(ctx, query, id, at, by)
	if err != nil {
		return mapError(err, "deactivate loan product")
	}

	return requireAffected(res, "deactivate loan product")
}
