package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
)

type paymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (id, loan_application_id, repayment_schedule_id, amount, payment_method,
			payment_date, status, transaction_reference, is_active, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		payment.ID,
		payment.LoanApplicationID,
		payment.RepaymentScheduleID,
		payment.Amount,
		payment.PaymentMethod,
		payment.PaymentDate,
		payment.Status,
		payment.TransactionRef,
		payment.IsActive,
		payment.CreatedAt,
		payment.CreatedBy,
	)

	return mapError(err, "insert payment transaction")
}

func (r *paymentRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*domain.PaymentTransaction, error) {
	query := `
		SELECT id, loan_application_id, repayment_schedule_id, amount, payment_method,
			payment_date, status, transaction_reference, is_active, created_at, created_by
		FROM payment_transactions
		WHERE loan_application_id = $1
		ORDER BY payment_date
	`

	var payments []*domain.PaymentTransaction
	if err := sqlx.SelectContext(ctx, r.db.conn(ctx), &payments, query, applicationID); err != nil {
		return nil, mapError(err, "list payments")
	}

	return payments, nil
}
