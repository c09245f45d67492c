package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanType selects which detail record a product carries.
type LoanType string

const (
	LoanTypePersonal LoanType = "PERSONAL"
	LoanTypeHome     LoanType = "HOME"
	LoanTypeGold     LoanType = "GOLD"
)

// ParseLoanType parses a loan type case-insensitively.
func ParseLoanType(s string) (LoanType, error) {
	switch LoanType(strings.ToUpper(strings.TrimSpace(s))) {
	case LoanTypePersonal:
		return LoanTypePersonal, nil
	case LoanTypeHome:
		return LoanTypeHome, nil
	case LoanTypeGold:
		return LoanTypeGold, nil
	}
	return "", fmt.Errorf("invalid loan type %q", s)
}

// LoanProduct represents a catalogue product an application refers to.
type LoanProduct struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Title         string          `json:"title" db:"title"`
	Description   string          `json:"description" db:"description"`
	ImageURL      string          `json:"image_url" db:"image_url"`
	MaxLoanAmount decimal.Decimal `json:"max_loan_amount" db:"max_loan_amount"`
	LoanType      LoanType        `json:"loan_type" db:"loan_type"`

	InterestRate  decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	TenureMonths  int             `json:"tenure_months" db:"tenure_months"`
	ProcessingFee decimal.Decimal `json:"processing_fee" db:"processing_fee"`

	// Type-specific details; only the fields for LoanType are set.
	MinimumSalary         *decimal.Decimal `json:"minimum_salary,omitempty" db:"minimum_salary"`
	DownPaymentPercentage *decimal.Decimal `json:"down_payment_percentage,omitempty" db:"down_payment_percentage"`
	GoldPurityRequired    *string          `json:"gold_purity_required,omitempty" db:"gold_purity_required"`
	RepaymentType         *string          `json:"repayment_type,omitempty" db:"repayment_type"`

	IsActive   bool       `json:"is_active" db:"is_active"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	CreatedBy  string     `json:"created_by" db:"created_by"`
	ModifiedAt *time.Time `json:"modified_at,omitempty" db:"modified_at"`
	ModifiedBy *string    `json:"modified_by,omitempty" db:"modified_by"`
}

type CreateLoanProductRequest struct {
	Title         string          `json:"title" validate:"required,max=100"`
	Description   string          `json:"description" validate:"max=500"`
	ImageURL      string          `json:"image_url" validate:"omitempty,url"`
	MaxLoanAmount decimal.Decimal `json:"max_loan_amount" validate:"decimal_gt=0"`
	LoanType      string          `json:"loan_type" validate:"required"`
	InterestRate  decimal.Decimal `json:"interest_rate" validate:"decimal_gte=0"`
	TenureMonths  int             `json:"tenure_months" validate:"gt=0"`
	ProcessingFee decimal.Decimal `json:"processing_fee" validate:"decimal_gte=0"`

	MinimumSalary         *decimal.Decimal `json:"minimum_salary,omitempty"`
	DownPaymentPercentage *decimal.Decimal `json:"down_payment_percentage,omitempty"`
	GoldPurityRequired    *string          `json:"gold_purity_required,omitempty"`
	RepaymentType         *string          `json:"repayment_type,omitempty"`
}
