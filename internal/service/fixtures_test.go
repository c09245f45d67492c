package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/repository/memory"
	"github.com/segyhp/lending-engine/pkg/lock"
)

const testActor = "admin@example.com"

var testNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

type sentNotification struct {
	kind   string
	email  string
	id     uuid.UUID
	reason string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) NotifyApproved(_ context.Context, email string, applicationID uuid.UUID) error {
	n.record(sentNotification{kind: "approved", email: email, id: applicationID})
	return nil
}

func (n *recordingNotifier) NotifyRejected(_ context.Context, email, reason string) error {
	n.record(sentNotification{kind: "rejected", email: email, reason: reason})
	return nil
}

func (n *recordingNotifier) NotifyPaymentConfirmed(_ context.Context, email string, transactionID uuid.UUID) error {
	n.record(sentNotification{kind: "payment", email: email, id: transactionID})
	return nil
}

func (n *recordingNotifier) record(s sentNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, s)
}

func (n *recordingNotifier) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

type testEnv struct {
	store        *memory.Store
	repos        Repositories
	notifier     *recordingNotifier
	applications *LoanApplicationService
	repayments   *RepaymentService
	products     *ProductService
	user         *domain.User
	product      *domain.LoanProduct
	now          time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	repos := Repositories{
		Tx:           store,
		Users:        store.Users(),
		Products:     store.Products(),
		Applications: store.Applications(),
		Schedules:    store.Schedules(),
		Payments:     store.Payments(),
	}

	env := &testEnv{store: store, repos: repos, notifier: &recordingNotifier{}, now: testNow}
	clock := func() time.Time { return env.now }
	rules := DefaultRules()

	env.applications = NewLoanApplicationService(repos, lock.NewLocalLocker(time.Second), env.notifier, rules, clock)
	env.repayments = NewRepaymentService(repos, env.notifier, rules, clock)
	env.products = NewProductService(repos, clock)
	env.user = env.addUser(t, "jane@example.com")

	env.product = &domain.LoanProduct{
		ID:            uuid.New(),
		Title:         "Personal Loan",
		MaxLoanAmount: decimal.NewFromInt(500000),
		LoanType:      domain.LoanTypePersonal,
		InterestRate:  decimal.NewFromInt(12),
		TenureMonths:  12,
		IsActive:      true,
		CreatedAt:     testNow,
	}
	require.NoError(t, repos.Products.Create(context.Background(), env.product))

	return env
}

func (e *testEnv) addUser(t *testing.T, email string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:        uuid.New(),
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
		Role:      domain.RoleCustomer,
		IsActive:  true,
		CreatedAt: testNow,
	}
	require.NoError(t, e.repos.Users.Create(context.Background(), user))
	return user
}

func (e *testEnv) validRequest() *domain.CreateLoanApplicationRequest {
	return &domain.CreateLoanApplicationRequest{
		UserID:          e.user.ID,
		Gender:          "Female",
		DateOfBirth:     time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC),
		NationalID:      "123456789012",
		Address:         "12 Main Street",
		Income:          decimal.NewFromInt(50000),
		EmploymentType:  "Salaried",
		LoanProductID:   e.product.ID,
		RequestedAmount: decimal.NewFromInt(120000),
		TenureMonths:    12,
		InterestRate:    decimal.NewFromInt(12),
	}
}

// approvedApplication creates an application and approves it, which stores
// its schedule.
func (e *testEnv) approvedApplication(t *testing.T) *domain.LoanApplication {
	t.Helper()
	ctx := context.Background()

	app, err := e.applications.Create(ctx, e.validRequest(), testActor)
	require.NoError(t, err)

	app, err = e.applications.UpdateStatus(ctx, app.ID, "Approved", "", testActor)
	require.NoError(t, err)
	return app
}

// hookedSchedules runs onGet once, right after the first GetByID read.
type hookedSchedules struct {
	repository.ScheduleRepository
	once  sync.Once
	onGet func()
}

func (h *hookedSchedules) GetByID(ctx context.Context, id uuid.UUID) (*domain.RepaymentScheduleEntry, error) {
	entry, err := h.ScheduleRepository.GetByID(ctx, id)
	h.once.Do(h.onGet)
	return entry, err
}

// blockingUsers holds every GetByID until release is closed.
type blockingUsers struct {
	repository.UserRepository
	release chan struct{}
}

func (b *blockingUsers) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.UserRepository.GetByID(ctx, id)
}
