package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const PaymentStatusCompleted = "Completed"

// PaymentTransaction records a payment against a single schedule entry.
type PaymentTransaction struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	LoanApplicationID   uuid.UUID       `json:"loan_application_id" db:"loan_application_id"`
	RepaymentScheduleID uuid.UUID       `json:"repayment_schedule_id" db:"repayment_schedule_id"`
	Amount              decimal.Decimal `json:"amount" db:"amount"`
	PaymentMethod       string          `json:"payment_method" db:"payment_method"`
	PaymentDate         time.Time       `json:"payment_date" db:"payment_date"`
	Status              string          `json:"status" db:"status"`
	TransactionRef      string          `json:"transaction_reference" db:"transaction_reference"`
	IsActive            bool            `json:"is_active" db:"is_active"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	CreatedBy           string          `json:"created_by" db:"created_by"`
}

type RecordPaymentRequest struct {
	LoanApplicationID   uuid.UUID       `json:"loan_application_id" validate:"required"`
	RepaymentScheduleID uuid.UUID       `json:"repayment_schedule_id" validate:"required"`
	Amount              decimal.Decimal `json:"amount"`
	PaymentMethod       string          `json:"payment_method"`
}
