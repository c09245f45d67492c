package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/logger"
)

// ProductService manages the loan product catalogue.
type ProductService struct {
	repos Repositories
	now   Clock
}

func NewProductService(repos Repositories, now Clock) *ProductService {
	if now == nil {
		now = systemClock
	}
	return &ProductService{repos: repos, now: now}
}

func productNotFound(id uuid.UUID) func() *errors.BusinessError {
	return func() *errors.BusinessError {
		return errors.NotFound(errors.ErrCodeProductNotFound, "Loan product "+id.String()+" not found")
	}
}

// Create adds a product. Only the detail fields of the chosen loan type are
// kept.
func (s *ProductService) Create(ctx context.Context, req *domain.CreateLoanProductRequest, actor string) (*domain.LoanProduct, error) {
	loanType, err := domain.ParseLoanType(req.LoanType)
	if err != nil {
		return nil, errors.Validation(errors.ErrCodeInvalidProduct, "Loan type must be one of PERSONAL, HOME, GOLD")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.Validation(errors.ErrCodeRequiredField, "Title is required")
	}
	if !req.MaxLoanAmount.IsPositive() || req.TenureMonths <= 0 {
		return nil, errors.Validation(errors.ErrCodeInvalidProduct, "Max loan amount and tenure must be greater than zero")
	}
	if req.InterestRate.IsNegative() || req.InterestRate.GreaterThan(maxRate) || req.ProcessingFee.IsNegative() {
		return nil, errors.Validation(errors.ErrCodeInvalidProduct, "Interest rate must be within 0-100 and fees must not be negative")
	}

	now := s.now()
	product := &domain.LoanProduct{
		ID:            uuid.New(),
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		MaxLoanAmount: req.MaxLoanAmount,
		LoanType:      loanType,
		InterestRate:  req.InterestRate,
		TenureMonths:  req.TenureMonths,
		ProcessingFee: req.ProcessingFee,
		IsActive:      true,
		CreatedAt:     now,
		CreatedBy:     actor,
	}

	switch loanType {
	case domain.LoanTypePersonal:
		if req.MinimumSalary == nil || req.MinimumSalary.IsNegative() {
			return nil, errors.Validation(errors.ErrCodeInvalidProduct, "Personal loans require a minimum salary")
		}
		product.MinimumSalary = req.MinimumSalary
	case domain.LoanTypeHome:
		if req.DownPaymentPercentage == nil || !inPercentRange(*req.DownPaymentPercentage) {
			return nil, errors.Validation(errors.ErrCodeInvalidProduct, "Home loans require a down payment percentage within 0-100")
		}
		product.DownPaymentPercentage = req.DownPaymentPercentage
	case domain.LoanTypeGold:
		if blank(req.GoldPurityRequired) || blank(req.RepaymentType) {
			return nil, errors.Validation(errors.ErrCodeInvalidProduct, "Gold loans require gold purity and repayment type")
		}
		product.GoldPurityRequired = req.GoldPurityRequired
		product.RepaymentType = req.RepaymentType
	}

	if err := s.repos.Products.Create(ctx, product); err != nil {
		return nil, storeError(err, nil)
	}

	logger.Info("[product] created", "product_id", product.ID, "type", product.LoanType)
	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*domain.LoanProduct, error) {
	product, err := s.repos.Products.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, productNotFound(id))
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, activeOnly bool) ([]*domain.LoanProduct, error) {
	products, err := s.repos.Products.List(ctx, activeOnly)
	return products, storeError(err, nil)
}

// Deactivate hides a product from new applications. Existing applications
// keep their reference.
func (s *ProductService) Deactivate(ctx context.Context, id uuid.UUID, actor string) error {
	if err := s.repos.Products.Deactivate(ctx, id, s.now(), actor); err != nil {
		return storeError(err, productNotFound(id))
	}
	logger.Info("[product] deactivated", "product_id", id)
	return nil
}

func inPercentRange(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(100))
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
