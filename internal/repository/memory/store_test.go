package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
)

func newApplication(userID uuid.UUID, nationalID string) *domain.LoanApplication {
	return &domain.LoanApplication{
		ID:              uuid.New(),
		UserID:          userID,
		NationalID:      nationalID,
		RequestedAmount: decimal.NewFromInt(50000),
		TenureMonths:    12,
		InterestRate:    decimal.NewFromInt(12),
		Status:          domain.LoanStatusPending,
		IsActive:        true,
		CreatedAt:       time.Now(),
	}
}

func TestApplicationCreate_UniqueNationalID(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Applications().Create(ctx, newApplication(uuid.New(), "123456789012")))

	err := store.Applications().Create(ctx, newApplication(uuid.New(), "123456789012"))

	var dup *repository.DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, repository.ConstraintNationalID, dup.Constraint)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestApplicationCreate_OneActivePerUser(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	userID := uuid.New()

	rejected := newApplication(userID, "111111111111")
	rejected.Status = domain.LoanStatusRejected
	require.NoError(t, store.Applications().Create(ctx, rejected))

	require.NoError(t, store.Applications().Create(ctx, newApplication(userID, "222222222222")))

	err := store.Applications().Create(ctx, newApplication(userID, "333333333333"))
	var dup *repository.DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, repository.ConstraintActiveUser, dup.Constraint)
}

func TestWithinTransaction_RollbackRestoresState(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	app := newApplication(uuid.New(), "123456789012")

	boom := errors.New("boom")
	err := store.WithinTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, store.Applications().Create(ctx, app))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Applications().GetByID(ctx, app.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithinTransaction_Nested(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	app := newApplication(uuid.New(), "123456789012")

	err := store.WithinTransaction(ctx, func(ctx context.Context) error {
		return store.WithinTransaction(ctx, func(ctx context.Context) error {
			return store.Applications().Create(ctx, app)
		})
	})
	require.NoError(t, err)

	got, err := store.Applications().GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.NationalID, got.NationalID)
}

func TestMarkPaid_OnlyOnce(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	appID := uuid.New()
	entry := &domain.RepaymentScheduleEntry{
		ID:                uuid.New(),
		LoanApplicationID: appID,
		InstallmentNumber: 1,
		DueDate:           time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Status:            domain.ScheduleStatusPending,
		IsActive:          true,
	}
	require.NoError(t, store.Schedules().ReplaceSchedule(ctx, appID, []*domain.RepaymentScheduleEntry{entry}, time.Now(), "test"))

	var (
		wg      sync.WaitGroup
		success int32
		paid    int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Schedules().MarkPaid(ctx, entry.ID, time.Now(), "test")
			switch {
			case err == nil:
				atomic.AddInt32(&success, 1)
			case errors.Is(err, repository.ErrAlreadyPaid):
				atomic.AddInt32(&paid, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), success)
	assert.Equal(t, int32(19), paid)

	err := store.Schedules().MarkPaid(ctx, uuid.New(), time.Now(), "test")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReplaceSchedule_DeactivatesPrevious(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	appID := uuid.New()

	first := []*domain.RepaymentScheduleEntry{
		{ID: uuid.New(), LoanApplicationID: appID, InstallmentNumber: 1, Status: domain.ScheduleStatusPending, IsActive: true},
		{ID: uuid.New(), LoanApplicationID: appID, InstallmentNumber: 2, Status: domain.ScheduleStatusPending, IsActive: true},
	}
	require.NoError(t, store.Schedules().ReplaceSchedule(ctx, appID, first, time.Now(), "test"))

	second := []*domain.RepaymentScheduleEntry{
		{ID: uuid.New(), LoanApplicationID: appID, InstallmentNumber: 1, Status: domain.ScheduleStatusPending, IsActive: true},
	}
	require.NoError(t, store.Schedules().ReplaceSchedule(ctx, appID, second, time.Now(), "test"))

	active, err := store.Schedules().GetActiveByApplication(ctx, appID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second[0].ID, active[0].ID)

	old, err := store.Schedules().GetByID(ctx, first[0].ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)
}

func TestMarkPaid_ReplacedEntryIsNotFound(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	appID := uuid.New()

	old := &domain.RepaymentScheduleEntry{ID: uuid.New(), LoanApplicationID: appID, InstallmentNumber: 1, Status: domain.ScheduleStatusPending, IsActive: true}
	require.NoError(t, store.Schedules().ReplaceSchedule(ctx, appID, []*domain.RepaymentScheduleEntry{old}, time.Now(), "test"))

	current := &domain.RepaymentScheduleEntry{ID: uuid.New(), LoanApplicationID: appID, InstallmentNumber: 1, Status: domain.ScheduleStatusPending, IsActive: true}
	require.NoError(t, store.Schedules().ReplaceSchedule(ctx, appID, []*domain.RepaymentScheduleEntry{current}, time.Now(), "test"))

	err := store.Schedules().MarkPaid(ctx, old.ID, time.Now(), "test")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := store.Schedules().GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusPending, got.Status)
}

func TestListOverdue(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	appID := uuid.New()
	asOf := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	entries := []*domain.RepaymentScheduleEntry{
		{ID: uuid.New(), LoanApplicationID: appID, InstallmentNumber: 1, DueDate: asOf.AddDate(0, -1, 0), Status: domain.ScheduleStatusPaid, IsActive: true},
		{ID: uuid.New(), LoanApplicationID: appID, InstallmentNumber: 2, DueDate: asOf.AddDate(0, 0, -1), Status: domain.ScheduleStatusPending, IsActive: true},
		{ID: uuid.New(), LoanApplicationID: appID, InstallmentNumber: 3, DueDate: asOf, Status: domain.ScheduleStatusPending, IsActive: true},
	}
	require.NoError(t, store.Schedules().ReplaceSchedule(ctx, appID, entries, time.Now(), "test"))

	overdue, err := store.Schedules().ListOverdue(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, 2, overdue[0].InstallmentNumber)
}
