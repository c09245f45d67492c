package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"
)

var nationalIDPattern = regexp.MustCompile(`^[0-9]{12}$`)

const (
	maxGenderLength         = 10
	maxAddressLength        = 500
	maxEmploymentTypeLength = 50
)

// EligibilityValidator runs the ordered admission checks for a new loan
// application. The first failing check is returned; nothing is written.
type EligibilityValidator struct {
	users        repository.UserRepository
	applications repository.ApplicationRepository
	products     repository.ProductRepository
	rules        Rules
	now          Clock
}

func NewEligibilityValidator(repos Repositories, rules Rules, now Clock) *EligibilityValidator {
	if now == nil {
		now = systemClock
	}
	return &EligibilityValidator{
		users:        repos.Users,
		applications: repos.Applications,
		products:     repos.Products,
		rules:        rules,
		now:          now,
	}
}

// Validate returns nil when the request may be stored, or the first
// BusinessError in check order.
func (v *EligibilityValidator) Validate(ctx context.Context, req *domain.CreateLoanApplicationRequest) error {
	if err := validateRequiredFields(req); err != nil {
		return err
	}
	if err := validateFieldFormats(req); err != nil {
		return err
	}

	user, err := v.users.GetByID(ctx, req.UserID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound(errors.ErrCodeUserNotFound, "User not found")
		}
		return errors.WrapDatabaseError(err)
	}
	if !user.IsActive {
		return errors.NotFound(errors.ErrCodeUserNotFound, "User not found or inactive")
	}

	age := utils.AgeOn(req.DateOfBirth, v.now())
	if age < v.rules.MinAge || age > v.rules.MaxAge {
		return errors.Validation(errors.ErrCodeAgeOutOfRange,
			fmt.Sprintf("Applicant age must be between %d and %d", v.rules.MinAge, v.rules.MaxAge))
	}

	if err := v.CheckUniqueness(ctx, req); err != nil {
		return err
	}

	product, err := v.products.GetByID(ctx, req.LoanProductID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound(errors.ErrCodeProductNotFound, "Loan product not found")
		}
		return errors.WrapDatabaseError(err)
	}
	if !product.IsActive {
		return errors.NotFound(errors.ErrCodeProductNotFound, "Loan product not found or inactive")
	}

	if req.RequestedAmount.LessThan(v.rules.MinLoanAmount) ||
		req.RequestedAmount.GreaterThan(v.rules.MaxLoanAmount) ||
		req.RequestedAmount.GreaterThan(product.MaxLoanAmount) {
		return errors.Validation(errors.ErrCodeAmountOutOfRange,
			fmt.Sprintf("Loan amount must be between %s and %s and not exceed the product maximum of %s",
				v.rules.MinLoanAmount.StringFixed(2), v.rules.MaxLoanAmount.StringFixed(2), product.MaxLoanAmount.StringFixed(2)))
	}

	if req.Income.LessThan(req.RequestedAmount.Div(v.rules.IncomeMultiplier)) {
		return errors.Validation(errors.ErrCodeInsufficientIncome,
			fmt.Sprintf("Income must be at least 1/%s of the requested amount", v.rules.IncomeMultiplier))
	}

	emi, err := utils.CalculateEMI(req.RequestedAmount, req.InterestRate, req.TenureMonths)
	if err != nil {
		return errors.Validation(errors.ErrCodeInvalidTerms, err.Error())
	}
	if emi.GreaterThan(req.Income.Mul(v.rules.MaxEMIIncomeRatio)) {
		return errors.Validation(errors.ErrCodeEMIExceedsIncome,
			fmt.Sprintf("Monthly installment %s exceeds %s%% of income",
				utils.RoundMoney(emi).StringFixed(2), v.rules.MaxEMIIncomeRatio.Shift(2).String()))
	}

	return nil
}

// CheckUniqueness verifies the single-active-loan and national ID rules. It
// runs again inside the creating transaction.
func (v *EligibilityValidator) CheckUniqueness(ctx context.Context, req *domain.CreateLoanApplicationRequest) error {
	active, err := v.applications.HasActiveLoan(ctx, req.UserID)
	if err != nil {
		return errors.WrapDatabaseError(err)
	}
	if active {
		return errors.Conflict(errors.ErrCodeActiveLoanExists, "User already has an active loan application")
	}

	used, err := v.applications.IsNationalIDUsed(ctx, strings.TrimSpace(req.NationalID))
	if err != nil {
		return errors.WrapDatabaseError(err)
	}
	if used {
		return errors.Conflict(errors.ErrCodeNationalIDUsed, "National ID has already been used for a loan application")
	}

	return nil
}

func validateRequiredFields(req *domain.CreateLoanApplicationRequest) error {
	required := []struct {
		name  string
		value string
	}{
		{"gender", req.Gender},
		{"national ID", req.NationalID},
		{"address", req.Address},
		{"employment type", req.EmploymentType},
	}

	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return errors.Validation(errors.ErrCodeRequiredField, fmt.Sprintf("The %s is required", field.name))
		}
	}

	return nil
}

func validateFieldFormats(req *domain.CreateLoanApplicationRequest) error {
	if utf8.RuneCountInString(strings.TrimSpace(req.Gender)) > maxGenderLength {
		return errors.Validation(errors.ErrCodeFieldLength, fmt.Sprintf("Gender must not exceed %d characters", maxGenderLength))
	}
	if !nationalIDPattern.MatchString(strings.TrimSpace(req.NationalID)) {
		return errors.Validation(errors.ErrCodeInvalidNationalID, "National ID must be exactly 12 digits")
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Address)) > maxAddressLength {
		return errors.Validation(errors.ErrCodeFieldLength, fmt.Sprintf("Address must not exceed %d characters", maxAddressLength))
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.EmploymentType)) > maxEmploymentTypeLength {
		return errors.Validation(errors.ErrCodeFieldLength, fmt.Sprintf("Employment type must not exceed %d characters", maxEmploymentTypeLength))
	}

	if req.TenureMonths <= 0 {
		return errors.Validation(errors.ErrCodeInvalidTerms, "Tenure must be greater than zero")
	}
	if req.InterestRate.IsNegative() || req.InterestRate.GreaterThan(maxRate) {
		return errors.Validation(errors.ErrCodeInvalidTerms, "Interest rate must be between 0 and 100")
	}

	return nil
}
