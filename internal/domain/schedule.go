package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduleStatus is the payment state of a single installment.
type ScheduleStatus string

// Business logic constants
const (
	ScheduleStatusPending ScheduleStatus = "Pending"
	ScheduleStatusPaid    ScheduleStatus = "Paid"
)

// RepaymentScheduleEntry represents one installment of an approved loan
type RepaymentScheduleEntry struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	LoanApplicationID uuid.UUID       `json:"loan_application_id" db:"loan_application_id"`
	InstallmentNumber int             `json:"installment_number" db:"installment_number"`
	DueDate           time.Time       `json:"due_date" db:"due_date"`
	PrincipalAmount   decimal.Decimal `json:"principal_amount" db:"principal_amount"`
	InterestAmount    decimal.Decimal `json:"interest_amount" db:"interest_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status            ScheduleStatus  `json:"status" db:"status"`
	IsActive          bool            `json:"is_active" db:"is_active"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	CreatedBy         string          `json:"created_by" db:"created_by"`
	ModifiedAt        *time.Time      `json:"modified_at,omitempty" db:"modified_at"`
	ModifiedBy        *string         `json:"modified_by,omitempty" db:"modified_by"`
}

func (e *RepaymentScheduleEntry) IsPaid() bool {
	return e.Status == ScheduleStatusPaid
}

// AmortizationLine is one computed row of an amortization table, before it
// is persisted as a schedule entry.
type AmortizationLine struct {
	InstallmentNumber int             `json:"installment_number"`
	DueDate           time.Time       `json:"due_date"`
	EMI               decimal.Decimal `json:"emi"`
	Principal         decimal.Decimal `json:"principal"`
	Interest          decimal.Decimal `json:"interest"`
	RemainingBalance  decimal.Decimal `json:"remaining_balance"`
}

// GenerateRepaymentPlanRequest carries optional overrides for the stored
// loan terms.
type GenerateRepaymentPlanRequest struct {
	TenureMonths *int             `json:"tenure_months,omitempty"`
	InterestRate *decimal.Decimal `json:"interest_rate,omitempty"`
	StartDate    *time.Time       `json:"start_date,omitempty"`
}

type RepaymentPlanResponse struct {
	LoanApplicationID uuid.UUID                 `json:"loan_application_id"`
	EMI               decimal.Decimal           `json:"emi"`
	TenureMonths      int                       `json:"tenure_months"`
	InterestRate      decimal.Decimal           `json:"interest_rate"`
	Persisted         bool                      `json:"persisted"`
	Lines             []AmortizationLine        `json:"lines,omitempty"`
	Entries           []*RepaymentScheduleEntry `json:"entries,omitempty"`
}
