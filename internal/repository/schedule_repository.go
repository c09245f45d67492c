package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
)

const scheduleColumns = `id, loan_application_id, installment_number, due_date,
	principal_amount, interest_amount, total_amount, status, is_active,
	created_at, created_by, modified_at, modified_by`

type scheduleRepository struct {
	db *DB
}

func NewScheduleRepository(db *DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RepaymentScheduleEntry, error) {
	query := `SELECT ` + scheduleColumns + ` FROM repayment_schedules WHERE id = $1`

	var entry domain.RepaymentScheduleEntry
	if err := sqlx.GetContext(ctx, r.db.conn(ctx), &entry, query, id); err != nil {
		return nil, mapError(err, "get schedule entry")
	}

	return &entry, nil
}

func (r *scheduleRepository) GetActiveByApplication(ctx context.Context, applicationID uuid.UUID) ([]*domain.RepaymentScheduleEntry, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM repayment_schedules
		WHERE loan_application_id = $1 AND is_active
		ORDER BY installment_number
	`

	var entries []*domain.RepaymentScheduleEntry
	if err := sqlx.SelectContext(ctx, r.db.conn(ctx), &entries, query, applicationID); err != nil {
		return nil, mapError(err, "get schedule by application")
	}

	return entries, nil
}

func (r *scheduleRepository) ReplaceSchedule(ctx context.Context, applicationID uuid.UUID, entries []*domain.RepaymentScheduleEntry, at time.Time, by string) error {
	return r.db.WithinTransaction(ctx, func(ctx context.Context) error {
		deactivate := `
			UPDATE repayment_schedules
			SET is_active = false, modified_at = $2, modified_by = $3
			WHERE loan_application_id = $1 AND is_active
		`
		if _, err := r.db.conn(ctx).ExecContext(ctx, deactivate, applicationID, at, by); err != nil {
			return mapError(err, "deactivate schedule")
		}

		insert := `
			INSERT INTO repayment_schedules (` + scheduleColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`
		for _, e := range entries {
			_, err := r.db.conn(ctx).ExecContext(ctx, insert,
				e.ID,
				e.LoanApplicationID,
				e.InstallmentNumber,
				e.DueDate,
				e.PrincipalAmount,
				e.InterestAmount,
				e.TotalAmount,
				e.Status,
				e.IsActive,
				e.CreatedAt,
				e.CreatedBy,
				e.ModifiedAt,
				e.ModifiedBy,
			)
			if err != nil {
				return mapError(err, "insert schedule entry")
			}
		}

		return nil
	})
}

func (r *scheduleRepository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time, by string) error {
	query := `
		UPDATE repayment_schedules
		SET status = $2, modified_at = $3, modified_by = $4
		WHERE id = $1 AND is_active AND status <> $2
	`

	res, err := r.db.conn(ctx).ExecContext(ctx, query, id, domain.ScheduleStatusPaid, at, by)
	if err != nil {
		return mapError(err, "mark schedule entry paid")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "mark schedule entry paid")
	}
	if n == 1 {
		return nil
	}

	// Nothing updated: the entry is gone, was replaced, or someone paid it first.
	entry, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !entry.IsActive {
		return ErrNotFound
	}
	return ErrAlreadyPaid
}

func (r *scheduleRepository) IncreaseTotal(ctx context.Context, id uuid.UUID, delta decimal.Decimal, at time.Time, by string) error {
	query := `
		UPDATE repayment_schedules
		SET total_amount = total_amount + $2, modified_at = $3, modified_by = $4
		WHERE id = $1
	`

	res, err := r.db.conn(ctx).ExecContext(ctx, query, id, delta, at, by)
	if err != nil {
		return mapError(err, "increase schedule total")
	}

	return requireAffected(res, "increase schedule total")
}

func (r *scheduleRepository) ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]*domain.RepaymentScheduleEntry, error) {
	query := `
		SELECT s.id, s.loan_application_id, s.installment_number, s.due_date,
			s.principal_amount, s.interest_amount, s.total_amount, s.status, s.is_active,
			s.created_at, s.created_by, s.modified_at, s.modified_by
		FROM repayment_schedules s
		JOIN loan_applications a ON a.id = s.loan_application_id
		WHERE a.user_id = $1 AND s.is_active AND s.status = $2
		ORDER BY s.due_date, s.installment_number
	`

	var entries []*domain.RepaymentScheduleEntry
	if err := sqlx.SelectContext(ctx, r.db.conn(ctx), &entries, query, userID, domain.ScheduleStatusPending); err != nil {
		return nil, mapError(err, "list pending schedule by user")
	}

	return entries, nil
}

func (r *scheduleRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.RepaymentScheduleEntry, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM repayment_schedules
		WHERE is_active AND status = $1 AND due_date < $2
		ORDER BY due_date, installment_number
	`

	var entries []*domain.RepaymentScheduleEntry
	if err := sqlx.SelectContext(ctx, r.db.conn(ctx), &entries, query, domain.ScheduleStatusPending, asOf); err != nil {
		return nil, mapError(err, "list overdue schedule")
	}

	return entries, nil
}

func (r *scheduleRepository) ListAll(ctx context.Context) ([]*domain.RepaymentScheduleEntry, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM repayment_schedules
		WHERE is_active
		ORDER BY loan_application_id, installment_number
	`

	var entries []*domain.RepaymentScheduleEntry
	if err := sqlx.SelectContext(ctx, r.db.conn(ctx), &entries, query); err != nil {
		return nil, mapError(err, "list schedule")
	}

	return entries, nil
}
