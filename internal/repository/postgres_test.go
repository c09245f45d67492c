package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/migrations"
	"github.com/segyhp/lending-engine/pkg/pg"
)

// These tests run against a real database when TEST_DATABASE_URL is set.
// The schema is migrated and every table is truncated before each test.

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url != "" {
		db, err := pg.Connect(context.Background(), pg.Config{URL: url})
		if err != nil {
			panic(err)
		}
		if err := pg.Migrate(db, migrations.FS); err != nil {
			panic(err)
		}
		testDB = db
	}

	code := m.Run()

	if testDB != nil {
		_ = testDB.Close()
	}
	os.Exit(code)
}

type fixture struct {
	db       *DB
	users    UserRepository
	products ProductRepository
	apps     ApplicationRepository
	entries  ScheduleRepository
	payments PaymentRepository
	user     *domain.User
	product  *domain.LoanProduct
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	if testDB == nil {
		t.Skip("TEST_DATABASE_URL not set")
	}

	_, err := testDB.Exec(`TRUNCATE payment_transactions, repayment_schedules, loan_applications, loan_products, users CASCADE`)
	require.NoError(t, err)

	db := NewDB(testDB)
	f := &fixture{
		db:       db,
		users:    NewUserRepository(db),
		products: NewProductRepository(db),
		apps:     NewApplicationRepository(db),
		entries:  NewScheduleRepository(db),
		payments: NewPaymentRepository(db),
	}

	ctx := context.Background()
	f.user = &domain.User{ID: uuid.New(), FirstName: "Ravi", Email: "ravi@example.com", Role: domain.RoleCustomer, IsActive: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, f.users.Create(ctx, f.user))

	f.product = &domain.LoanProduct{
		ID:            uuid.New(),
		Title:         "Personal Loan",
		MaxLoanAmount: decimal.NewFromInt(500000),
		LoanType:      domain.LoanTypePersonal,
		InterestRate:  decimal.NewFromInt(12),
		TenureMonths:  12,
		MinimumSalary: ptrDecimal(decimal.NewFromInt(20000)),
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
		CreatedBy:     "test",
	}
	require.NoError(t, f.products.Create(ctx, f.product))

	return f
}

func ptrDecimal(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func (f *fixture) newApplication(userID uuid.UUID, nationalID string) *domain.LoanApplication {
	return &domain.LoanApplication{
		ID:              uuid.New(),
		UserID:          userID,
		Gender:          "Male",
		DateOfBirth:     time.Date(1988, 3, 14, 0, 0, 0, 0, time.UTC),
		NationalID:      nationalID,
		Address:         "9 Hill View",
		Income:          decimal.NewFromInt(60000),
		EmploymentType:  "Salaried",
		LoanProductID:   f.product.ID,
		RequestedAmount: decimal.NewFromInt(120000),
		TenureMonths:    12,
		InterestRate:    decimal.NewFromInt(12),
		Status:          domain.LoanStatusPending,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
		CreatedBy:       "test",
	}
}

func TestPostgresApplicationRepository(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	app := f.newApplication(f.user.ID, "123412341234")
	require.NoError(t, f.apps.Create(ctx, app))

	got, err := f.apps.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.NationalID, got.NationalID)
	assert.True(t, app.RequestedAmount.Equal(got.RequestedAmount))
	assert.Equal(t, domain.LoanStatusPending, got.Status)

	active, err := f.apps.HasActiveLoan(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, active)

	_, err = f.apps.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	got.Decide(domain.LoanStatusRejected, "Low score", time.Now().UTC(), "officer")
	require.NoError(t, f.apps.Update(ctx, got))

	active, err = f.apps.HasActiveLoan(ctx, f.user.ID)
	require.NoError(t, err)
	assert.False(t, active)

	rejected, err := f.apps.ListByStatus(ctx, domain.LoanStatusRejected)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	require.NotNil(t, rejected[0].DecisionReason)
	assert.Equal(t, "Low score", *rejected[0].DecisionReason)
}

func TestPostgresApplicationConstraints(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	require.NoError(t, f.apps.Create(ctx, f.newApplication(f.user.ID, "111122223333")))

	err := f.apps.Create(ctx, f.newApplication(f.user.ID, "444455556666"))
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, ConstraintActiveUser, dup.Constraint)

	other := &domain.User{ID: uuid.New(), FirstName: "Meera", Email: "meera@example.com", Role: domain.RoleCustomer, IsActive: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, f.users.Create(ctx, other))

	err = f.apps.Create(ctx, f.newApplication(other.ID, "111122223333"))
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, ConstraintNationalID, dup.Constraint)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPostgresScheduleRepository(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	app := f.newApplication(f.user.ID, "999988887777")
	require.NoError(t, f.apps.Create(ctx, app))

	now := time.Now().UTC()
	first := []*domain.RepaymentScheduleEntry{
		newEntry(app.ID, 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), now),
		newEntry(app.ID, 2, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), now),
	}
	require.NoError(t, f.entries.ReplaceSchedule(ctx, app.ID, first, now, "test"))

	second := []*domain.RepaymentScheduleEntry{
		newEntry(app.ID, 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), now),
		newEntry(app.ID, 2, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), now),
		newEntry(app.ID, 3, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), now),
	}
	require.NoError(t, f.entries.ReplaceSchedule(ctx, app.ID, second, now, "test"))

	active, err := f.entries.GetActiveByApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, second[0].ID, active[0].ID)

	require.NoError(t, f.entries.MarkPaid(ctx, active[0].ID, now, "test"))
	assert.ErrorIs(t, f.entries.MarkPaid(ctx, active[0].ID, now, "test"), ErrAlreadyPaid)
	assert.ErrorIs(t, f.entries.MarkPaid(ctx, uuid.New(), now, "test"), ErrNotFound)
	assert.ErrorIs(t, f.entries.MarkPaid(ctx, first[0].ID, now, "test"), ErrNotFound)

	require.NoError(t, f.entries.IncreaseTotal(ctx, active[1].ID, decimal.NewFromInt(500), now, "test"))
	penalized, err := f.entries.GetByID(ctx, active[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "10500.00", penalized.TotalAmount.StringFixed(2))

	overdue, err := f.entries.ListOverdue(ctx, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, 2, overdue[0].InstallmentNumber)

	pending, err := f.entries.ListPendingByUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestPostgresTransactionRollback(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	app := f.newApplication(f.user.ID, "555566667777")
	boom := errors.New("boom")

	err := f.db.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := f.apps.Create(ctx, app); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = f.apps.GetByID(ctx, app.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresPaymentRepository(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	app := f.newApplication(f.user.ID, "121212121212")
	require.NoError(t, f.apps.Create(ctx, app))

	now := time.Now().UTC()
	entry := newEntry(app.ID, 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), now)
	require.NoError(t, f.entries.ReplaceSchedule(ctx, app.ID, []*domain.RepaymentScheduleEntry{entry}, now, "test"))

	payment := &domain.PaymentTransaction{
		ID:                  uuid.New(),
		LoanApplicationID:   app.ID,
		RepaymentScheduleID: entry.ID,
		Amount:              decimal.NewFromInt(10000),
		PaymentMethod:       "NEFT",
		PaymentDate:         now,
		Status:              domain.PaymentStatusCompleted,
		TransactionRef:      uuid.NewString(),
		IsActive:            true,
		CreatedAt:           now,
		CreatedBy:           "test",
	}
	require.NoError(t, f.payments.Create(ctx, payment))

	payments, err := f.payments.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, payment.TransactionRef, payments[0].TransactionRef)
}

func newEntry(appID uuid.UUID, n int, due, at time.Time) *domain.RepaymentScheduleEntry {
	return &domain.RepaymentScheduleEntry{
		ID:                uuid.New(),
		LoanApplicationID: appID,
		InstallmentNumber: n,
		DueDate:           due,
		PrincipalAmount:   decimal.NewFromInt(9000),
		InterestAmount:    decimal.NewFromInt(1000),
		TotalAmount:       decimal.NewFromInt(10000),
		Status:            domain.ScheduleStatusPending,
		IsActive:          true,
		CreatedAt:         at,
		CreatedBy:         "test",
	}
}
