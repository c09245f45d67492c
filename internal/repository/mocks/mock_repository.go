// Package mocks holds testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/lending-engine/internal/domain"
)

// PassthroughTransactor runs fn directly without a transaction.
type PassthroughTransactor struct{}

func (PassthroughTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *domain.LoanProduct) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanProduct, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanProduct), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, activeOnly bool) ([]*domain.LoanProduct, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanProduct), args.Error(1)
}

func (m *MockProductRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time, by string) error {
	args := m.Called(ctx, id, at, by)
	return args.Error(0)
}

type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) Create(ctx context.Context, app *domain.LoanApplication) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}

func (m *MockApplicationRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}

func (m *MockApplicationRepository) Update(ctx context.Context, app *domain.LoanApplication) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockApplicationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.LoanApplication, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanApplication), args.Error(1)
}

func (m *MockApplicationRepository) ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.LoanApplication, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanApplication), args.Error(1)
}

func (m *MockApplicationRepository) ListAll(ctx context.Context) ([]*domain.LoanApplication, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanApplication), args.Error(1)
}

func (m *MockApplicationRepository) HasActiveLoan(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockApplicationRepository) IsNationalIDUsed(ctx context.Context, nationalID string) (bool, error) {
	args := m.Called(ctx, nationalID)
	return args.Bool(0), args.Error(1)
}

type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RepaymentScheduleEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepaymentScheduleEntry), args.Error(1)
}

func (m *MockScheduleRepository) GetActiveByApplication(ctx context.Context, applicationID uuid.UUID) ([]*domain.RepaymentScheduleEntry, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RepaymentScheduleEntry), args.Error(1)
}

func (m *MockScheduleRepository) ReplaceSchedule(ctx context.Context, applicationID uuid.UUID, entries []*domain.RepaymentScheduleEntry, at time.Time, by string) error {
	args := m.Called(ctx, applicationID, entries, at, by)
	return args.Error(0)
}

func (m *MockScheduleRepository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time, by string) error {
	args := m.Called(ctx, id, at, by)
	return args.Error(0)
}

func (m *MockScheduleRepository) IncreaseTotal(ctx context.Context, id uuid.UUID, delta decimal.Decimal, at time.Time, by string) error {
	args := m.Called(ctx, id, delta, at, by)
	return args.Error(0)
}

func (m *MockScheduleRepository) ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]*domain.RepaymentScheduleEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RepaymentScheduleEntry), args.Error(1)
}

func (m *MockScheduleRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.RepaymentScheduleEntry, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RepaymentScheduleEntry), args.Error(1)
}

func (m *MockScheduleRepository) ListAll(ctx context.Context) ([]*domain.RepaymentScheduleEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RepaymentScheduleEntry), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.PaymentTransaction) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*domain.PaymentTransaction, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentTransaction), args.Error(1)
}
