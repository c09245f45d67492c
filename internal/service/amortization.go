package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"
)

var maxRate = decimal.NewFromInt(100)

// Amortization is a reducing-balance repayment table.
type Amortization struct {
	EMI   decimal.Decimal
	Lines []domain.AmortizationLine
}

func validateTerms(principal, annualRate decimal.Decimal, tenureMonths int) error {
	if !principal.IsPositive() {
		return errors.Validation(errors.ErrCodeInvalidTerms, "Principal must be greater than zero")
	}
	if annualRate.IsNegative() || annualRate.GreaterThan(maxRate) {
		return errors.Validation(errors.ErrCodeInvalidTerms, "Interest rate must be between 0 and 100")
	}
	if tenureMonths <= 0 {
		return errors.Validation(errors.ErrCodeInvalidTerms, "Tenure must be greater than zero")
	}
	return nil
}

// Amortize builds the repayment table for the given terms. Installment i is
// due AddMonths(startDate, i). Arithmetic runs at full precision; each line is
// rounded to cents on output with Principal = EMI - Interest, so the rounded
// principals may not sum exactly to the loan amount.
func Amortize(principal, annualRate decimal.Decimal, tenureMonths int, startDate time.Time) (*Amortization, error) {
	if err := validateTerms(principal, annualRate, tenureMonths); err != nil {
		return nil, err
	}

	emi, err := utils.CalculateEMI(principal, annualRate, tenureMonths)
	if err != nil {
		return nil, errors.Validation(errors.ErrCodeInvalidTerms, err.Error())
	}

	r := utils.MonthlyRate(annualRate)
	roundedEMI := utils.RoundMoney(emi)
	balance := principal
	lines := make([]domain.AmortizationLine, 0, tenureMonths)

	for i := 1; i <= tenureMonths; i++ {
		interest := balance.Mul(r)
		balance = balance.Sub(emi.Sub(interest))

		roundedInterest := utils.RoundMoney(interest)
		lines = append(lines, domain.AmortizationLine{
			InstallmentNumber: i,
			DueDate:           utils.CalculateDueDate(startDate, i),
			EMI:               roundedEMI,
			Interest:          roundedInterest,
			Principal:         roundedEMI.Sub(roundedInterest),
			RemainingBalance:  utils.RoundMoney(balance).Abs(),
		})
	}

	return &Amortization{EMI: roundedEMI, Lines: lines}, nil
}

// ScheduleEntries converts the table into Pending schedule entries.
func (a *Amortization) ScheduleEntries(applicationID uuid.UUID, at time.Time, by string) []*domain.RepaymentScheduleEntry {
	entries := make([]*domain.RepaymentScheduleEntry, 0, len(a.Lines))
	for _, line := range a.Lines {
		entries = append(entries, &domain.RepaymentScheduleEntry{
			ID:                uuid.New(),
			LoanApplicationID: applicationID,
			InstallmentNumber: line.InstallmentNumber,
			DueDate:           line.DueDate,
			PrincipalAmount:   line.Principal,
			InterestAmount:    line.Interest,
			TotalAmount:       line.EMI,
			Status:            domain.ScheduleStatusPending,
			IsActive:          true,
			CreatedAt:         at,
			CreatedBy:         by,
		})
	}
	return entries
}
