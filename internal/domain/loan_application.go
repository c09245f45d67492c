package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanApplication represents a loan application entity
type LoanApplication struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	UserID         uuid.UUID       `json:"user_id" db:"user_id"`
	Gender         string          `json:"gender" db:"gender"`
	DateOfBirth    time.Time       `json:"date_of_birth" db:"date_of_birth"`
	NationalID     string          `json:"national_id" db:"national_id"`
	Address        string          `json:"address" db:"address"`
	Income         decimal.Decimal `json:"income" db:"income"`
	EmploymentType string          `json:"employment_type" db:"employment_type"`

	LoanProductID   uuid.UUID       `json:"loan_product_id" db:"loan_product_id"`
	RequestedAmount decimal.Decimal `json:"requested_amount" db:"requested_amount"`
	TenureMonths    int             `json:"tenure_months" db:"tenure_months"`
	InterestRate    decimal.Decimal `json:"interest_rate" db:"interest_rate"`

	Status         LoanStatus `json:"status" db:"status"`
	DecisionDate   *time.Time `json:"decision_date,omitempty" db:"decision_date"`
	DecisionReason *string    `json:"decision_reason,omitempty" db:"decision_reason"`
	IsActive       bool       `json:"is_active" db:"is_active"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	CreatedBy  string     `json:"created_by" db:"created_by"`
	ModifiedAt *time.Time `json:"modified_at,omitempty" db:"modified_at"`
	ModifiedBy *string    `json:"modified_by,omitempty" db:"modified_by"`
}

// Touch stamps the modification audit fields.
func (a *LoanApplication) Touch(at time.Time, by string) {
	a.ModifiedAt = &at
	a.ModifiedBy = &by
}

// Decide records a status change with its decision date and reason.
func (a *LoanApplication) Decide(status LoanStatus, reason string, at time.Time, by string) {
	a.Status = status
	a.DecisionDate = &at
	a.DecisionReason = &reason
	a.Touch(at, by)
}

// DTOs for requests and responses

type CreateLoanApplicationRequest struct {
	UserID          uuid.UUID       `json:"user_id" validate:"required"`
	Gender          string          `json:"gender"`
	DateOfBirth     time.Time       `json:"date_of_birth" validate:"required"`
	NationalID      string          `json:"national_id"`
	Address         string          `json:"address"`
	Income          decimal.Decimal `json:"income" validate:"decimal_gte=0"`
	EmploymentType  string          `json:"employment_type"`
	LoanProductID   uuid.UUID       `json:"loan_product_id" validate:"required"`
	RequestedAmount decimal.Decimal `json:"requested_amount" validate:"decimal_gt=0"`
	TenureMonths    int             `json:"tenure_months"`
	InterestRate    decimal.Decimal `json:"interest_rate" validate:"decimal_gte=0"`
}

type UpdateLoanStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason"`
}

type SendToDecisionResponse struct {
	ApplicationID uuid.UUID  `json:"application_id"`
	Status        LoanStatus `json:"status"`
}
