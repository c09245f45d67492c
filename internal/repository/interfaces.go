package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
)

// Transactor runs fn inside a single store transaction. Repository calls made
// with the context passed to fn join that transaction; nested calls reuse it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for applicant data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// ProductRepository defines the interface for loan product data operations
type ProductRepository interface {
	// Create creates a new loan product
	Create(ctx context.Context, product *domain.LoanProduct) error

	// GetByID retrieves a loan product by ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanProduct, error)

	// List retrieves loan products, optionally only the active ones
	List(ctx context.Context, activeOnly bool) ([]*domain.LoanProduct, error)

	// Deactivate soft-deletes a loan product
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time, by string) error
}

// ApplicationRepository defines the interface for loan application data operations
type ApplicationRepository interface {
	// Create creates a new loan application
	Create(ctx context.Context, app *domain.LoanApplication) error

	// GetByID retrieves a loan application by ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error)

	// LockByID retrieves a loan application and holds a row lock on it until
	// the surrounding transaction ends
	LockByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error)

	// Update persists the lifecycle and audit fields of an application
	Update(ctx context.Context, app *domain.LoanApplication) error

	// ListByUser retrieves all applications of a user, newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.LoanApplication, error)

	// ListByStatus retrieves all applications in a status, newest first
	ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.LoanApplication, error)

	// ListAll retrieves every application, newest first
	ListAll(ctx context.Context) ([]*domain.LoanApplication, error)

	// HasActiveLoan reports whether the user holds an active application
	HasActiveLoan(ctx context.Context, userID uuid.UUID) (bool, error)

	// IsNationalIDUsed reports whether any application ever used the national ID
	IsNationalIDUsed(ctx context.Context, nationalID string) (bool, error)
}

// ScheduleRepository defines the interface for repayment schedule data operations
type ScheduleRepository interface {
	// GetByID retrieves a schedule entry by ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RepaymentScheduleEntry, error)

	// GetActiveByApplication retrieves the active schedule ordered by installment number
	GetActiveByApplication(ctx context.Context, applicationID uuid.UUID) ([]*domain.RepaymentScheduleEntry, error)

	// ReplaceSchedule deactivates the current active entries of the application
	// and inserts the given ones
	ReplaceSchedule(ctx context.Context, applicationID uuid.UUID, entries []*domain.RepaymentScheduleEntry, at time.Time, by string) error

	// MarkPaid flips a Pending active entry to Paid. It returns ErrAlreadyPaid
	// when the entry was paid concurrently and ErrNotFound when it does not
	// exist or belongs to a replaced schedule.
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time, by string) error

	// IncreaseTotal atomically adds delta to the total amount of an entry
	IncreaseTotal(ctx context.Context, id uuid.UUID, delta decimal.Decimal, at time.Time, by string) error

	// ListPendingByUser retrieves unpaid active entries across a user's applications
	ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]*domain.RepaymentScheduleEntry, error)

	// ListOverdue retrieves unpaid active entries due strictly before asOf
	ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.RepaymentScheduleEntry, error)

	// ListAll retrieves every active entry
	ListAll(ctx context.Context) ([]*domain.RepaymentScheduleEntry, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.PaymentTransaction) error

	// ListByApplication retrieves all payments for a loan application
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*domain.PaymentTransaction, error)
}
