package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/notification"
	"github.com/segyhp/lending-engine/internal/repository/mocks"
	"github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/lock"
)

func TestCreate_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	app, err := env.applications.Create(ctx, env.validRequest(), testActor)

	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusPending, app.Status)
	assert.True(t, app.IsActive)
	assert.Equal(t, testActor, app.CreatedBy)
	assert.Equal(t, testNow, app.CreatedAt)
	assert.Nil(t, app.DecisionDate)

	stored, err := env.applications.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.NationalID, stored.NationalID)
	assert.True(t, app.RequestedAmount.Equal(stored.RequestedAmount))
}

func TestCreate_SecondActiveApplicationRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.applications.Create(ctx, env.validRequest(), testActor)
	require.NoError(t, err)

	req := env.validRequest()
	req.NationalID = "210987654321"
	_, err = env.applications.Create(ctx, req, testActor)

	be := errors.AsBusinessError(err)
	assert.Equal(t, errors.KindConflict, be.Kind)
	assert.Equal(t, errors.ErrCodeActiveLoanExists, be.Code)

	apps, err := env.applications.ListByUser(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestCreate_ConcurrentSameNationalID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const workers = 10
	requests := make([]*domain.CreateLoanApplicationRequest, workers)
	for i := range requests {
		user := env.addUser(t, fmt.Sprintf("user%d@example.com", i))
		req := env.validRequest()
		req.UserID = user.ID
		requests[i] = req
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, req := range requests {
		wg.Add(1)
		go func(req *domain.CreateLoanApplicationRequest) {
			defer wg.Done()
			_, err := env.applications.Create(ctx, req, testActor)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if errors.KindOf(err) == errors.KindConflict {
				conflicts++
			}
		}(req)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)

	all, err := env.applications.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreate_ConcurrentSameUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		req := env.validRequest()
		req.NationalID = fmt.Sprintf("1000000000%02d", i)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.applications.Create(ctx, req, testActor); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)

	apps, err := env.applications.ListByUser(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestCreate_LockHeldElsewhere(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	locker := lock.NewLocalLocker(50 * time.Millisecond)
	svc := NewLoanApplicationService(env.repos, locker, env.notifier, DefaultRules(), func() time.Time { return testNow })

	release, err := locker.Acquire(ctx, "loan-application:user:"+env.user.ID.String())
	require.NoError(t, err)
	defer release()

	_, err = svc.Create(ctx, env.validRequest(), testActor)

	be := errors.AsBusinessError(err)
	assert.Equal(t, errors.KindConflict, be.Kind)
	assert.Equal(t, errors.ErrCodeCreationInProgress, be.Code)
}

func TestUpdateStatus_Approve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	app, err := env.applications.Create(ctx, env.validRequest(), testActor)
	require.NoError(t, err)

	env.now = testNow.Add(2 * time.Hour)
	approved, err := env.applications.UpdateStatus(ctx, app.ID, "approved", "", testActor)

	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusApproved, approved.Status)
	require.NotNil(t, approved.DecisionDate)
	assert.Equal(t, env.now, *approved.DecisionDate)
	require.NotNil(t, approved.DecisionReason)
	assert.Equal(t, "Status updated to Approved", *approved.DecisionReason)

	entries, err := env.repayments.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, entries, 12)

	first := entries[0]
	assert.Equal(t, 1, first.InstallmentNumber)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), first.DueDate)
	assert.Equal(t, "1200.00", first.InterestAmount.StringFixed(2))
	assert.Equal(t, "9461.85", first.PrincipalAmount.StringFixed(2))
	assert.Equal(t, "10661.85", first.TotalAmount.StringFixed(2))
	assert.Equal(t, domain.ScheduleStatusPending, first.Status)

	sent := env.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "approved", sent[0].kind)
	assert.Equal(t, env.user.Email, sent[0].email)
	assert.Equal(t, app.ID, sent[0].id)
}

func TestUpdateStatus_ApprovalDoesNotWaitForApplicantLookup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	app, err := env.applications.Create(ctx, env.validRequest(), testActor)
	require.NoError(t, err)

	users := &blockingUsers{UserRepository: env.repos.Users, release: make(chan struct{})}
	repos := env.repos
	repos.Users = users
	async := notification.NewAsyncNotifier(env.notifier, 5*time.Second)
	svc := NewLoanApplicationService(repos, lock.NewLocalLocker(time.Second), async, DefaultRules(), func() time.Time { return env.now })

	done := make(chan error, 1)
	go func() {
		_, err := svc.UpdateStatus(ctx, app.ID, "Approved", "", testActor)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("approval blocked on the applicant lookup")
	}
	assert.Empty(t, env.notifier.all())

	close(users.release)
	async.Wait()

	sent := env.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "approved", sent[0].kind)
	assert.Equal(t, env.user.Email, sent[0].email)
}

func TestUpdateStatus_RejectWithReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	app, err := env.applications.Create(ctx, env.validRequest(), testActor)
	require.NoError(t, err)

	rejected, err := env.applications.UpdateStatus(ctx, app.ID, "Rejected", "Insufficient documents", testActor)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusRejected, rejected.Status)

	sent := env.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "rejected", sent[0].kind)
	assert.Equal(t, "Insufficient documents", sent[0].reason)

	entries, err := env.repayments.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// A rejected application no longer blocks the user.
	req := env.validRequest()
	req.NationalID = "555555555555"
	_, err = env.applications.Create(ctx, req, testActor)
	assert.NoError(t, err)
}

func TestUpdateStatus_Errors(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(t *testing.T, env *testEnv) uuid.UUID
		status   string
		wantKind errors.Kind
		wantCode string
		wantMsg  string
	}{
		{
			name: "unknown status value",
			prepare: func(t *testing.T, env *testEnv) uuid.UUID {
				app, err := env.applications.Create(context.Background(), env.validRequest(), testActor)
				require.NoError(t, err)
				return app.ID
			},
			status:   "Archived",
			wantKind: errors.KindValidation,
			wantCode: errors.ErrCodeInvalidStatus,
		},
		{
			name:     "unknown application",
			prepare:  func(*testing.T, *testEnv) uuid.UUID { return uuid.New() },
			status:   "Processing",
			wantKind: errors.KindNotFound,
			wantCode: errors.ErrCodeLoanNotFound,
		},
		{
			name: "rejected is terminal",
			prepare: func(t *testing.T, env *testEnv) uuid.UUID {
				app, err := env.applications.Create(context.Background(), env.validRequest(), testActor)
				require.NoError(t, err)
				_, err = env.applications.UpdateStatus(context.Background(), app.ID, "Rejected", "", testActor)
				require.NoError(t, err)
				return app.ID
			},
			status:   "Approved",
			wantKind: errors.KindValidation,
			wantCode: errors.ErrCodeInvalidTransition,
			wantMsg:  "already Rejected",
		},
		{
			name: "initial review cannot be approved directly",
			prepare: func(t *testing.T, env *testEnv) uuid.UUID {
				app, err := env.applications.Create(context.Background(), env.validRequest(), testActor)
				require.NoError(t, err)
				_, err = env.applications.UpdateStatus(context.Background(), app.ID, "Initial Review", "", testActor)
				require.NoError(t, err)
				return app.ID
			},
			status:   "Approved",
			wantKind: errors.KindValidation,
			wantCode: errors.ErrCodeInvalidTransition,
		},
		{
			name: "pending cannot be completed",
			prepare: func(t *testing.T, env *testEnv) uuid.UUID {
				app, err := env.applications.Create(context.Background(), env.validRequest(), testActor)
				require.NoError(t, err)
				return app.ID
			},
			status:   "Completed",
			wantKind: errors.KindConflict,
			wantCode: errors.ErrCodeInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			id := tt.prepare(t, env)

			_, err := env.applications.UpdateStatus(context.Background(), id, tt.status, "", testActor)

			be := errors.AsBusinessError(err)
			assert.Equal(t, tt.wantKind, be.Kind)
			assert.Equal(t, tt.wantCode, be.Code)
			if tt.wantMsg != "" {
				assert.Contains(t, be.Message, tt.wantMsg)
			}
		})
	}
}

func TestSendToDecision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	app, err := env.applications.Create(ctx, env.validRequest(), testActor)
	require.NoError(t, err)

	processing, err := env.applications.SendToDecision(ctx, app.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusProcessing, processing.Status)
	require.NotNil(t, processing.DecisionReason)
	assert.Equal(t, sendToDecisionReason, *processing.DecisionReason)

	pending, err := env.applications.ListByStatus(ctx, domain.LoanStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = env.applications.SendToDecision(ctx, app.ID, testActor)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))

	assert.Empty(t, env.notifier.all())
}

func TestFinalize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	app := env.approvedApplication(t)

	_, err := env.applications.Finalize(ctx, app.ID, testActor)
	be := errors.AsBusinessError(err)
	assert.Equal(t, errors.KindConflict, be.Kind)
	assert.Equal(t, errors.ErrCodeRepaymentsOutstanding, be.Code)

	entries, err := env.repayments.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	for _, e := range entries {
		_, err := env.repayments.RecordPayment(ctx, &domain.RecordPaymentRequest{
			LoanApplicationID:   app.ID,
			RepaymentScheduleID: e.ID,
			Amount:              e.TotalAmount,
			PaymentMethod:       "UPI",
		}, testActor)
		require.NoError(t, err)
	}

	completed, err := env.applications.UpdateStatus(ctx, app.ID, "Completed", "", testActor)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCompleted, completed.Status)
	assert.False(t, completed.IsActive)

	_, err = env.applications.Finalize(ctx, app.ID, testActor)
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))

	req := env.validRequest()
	req.NationalID = "777777777777"
	_, err = env.applications.Create(ctx, req, testActor)
	assert.NoError(t, err)
}

func TestFinalize_NotApproved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	app, err := env.applications.Create(ctx, env.validRequest(), testActor)
	require.NoError(t, err)

	_, err = env.applications.Finalize(ctx, app.ID, testActor)
	be := errors.AsBusinessError(err)
	assert.Equal(t, errors.KindConflict, be.Kind)
	assert.Equal(t, errors.ErrCodeInvalidTransition, be.Code)

	_, err = env.applications.Finalize(ctx, uuid.New(), testActor)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestUpdateStatus_StoreFailureIsServiceError(t *testing.T) {
	apps := &mocks.MockApplicationRepository{}
	repos := Repositories{
		Tx:           mocks.PassthroughTransactor{},
		Users:        &mocks.MockUserRepository{},
		Products:     &mocks.MockProductRepository{},
		Applications: apps,
		Schedules:    &mocks.MockScheduleRepository{},
		Payments:     &mocks.MockPaymentRepository{},
	}
	svc := NewLoanApplicationService(repos, lock.NewLocalLocker(time.Second), &recordingNotifier{}, DefaultRules(), nil)

	id := uuid.New()
	apps.On("LockByID", mock.Anything, id).Return(nil, fmt.Errorf("connection reset"))

	_, err := svc.UpdateStatus(context.Background(), id, "Processing", "", testActor)

	be := errors.AsBusinessError(err)
	assert.Equal(t, errors.KindService, be.Kind)
	assert.Equal(t, errors.ErrCodeDatabaseError, be.Code)
	apps.AssertExpectations(t)
}

func TestUpdateStatus_ApprovalRollsBackOnScheduleFailure(t *testing.T) {
	apps := &mocks.MockApplicationRepository{}
	schedules := &mocks.MockScheduleRepository{}
	notifier := &recordingNotifier{}
	repos := Repositories{
		Tx:           mocks.PassthroughTransactor{},
		Users:        &mocks.MockUserRepository{},
		Products:     &mocks.MockProductRepository{},
		Applications: apps,
		Schedules:    schedules,
		Payments:     &mocks.MockPaymentRepository{},
	}
	svc := NewLoanApplicationService(repos, lock.NewLocalLocker(time.Second), notifier, DefaultRules(), func() time.Time { return testNow })

	app := &domain.LoanApplication{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		RequestedAmount: decimal.NewFromInt(120000),
		TenureMonths:    12,
		InterestRate:    decimal.NewFromInt(12),
		Status:          domain.LoanStatusProcessing,
		IsActive:        true,
	}
	apps.On("LockByID", mock.Anything, app.ID).Return(app, nil)
	apps.On("Update", mock.Anything, app).Return(nil)
	schedules.On("GetActiveByApplication", mock.Anything, app.ID).Return([]*domain.RepaymentScheduleEntry{}, nil)
	schedules.On("ReplaceSchedule", mock.Anything, app.ID, mock.MatchedBy(func(entries []*domain.RepaymentScheduleEntry) bool {
		return len(entries) == 12
	}), testNow, testActor).Return(fmt.Errorf("disk full"))

	_, err := svc.UpdateStatus(context.Background(), app.ID, "Approved", "", testActor)

	assert.Equal(t, errors.KindService, errors.KindOf(err))
	assert.Empty(t, notifier.all())
	apps.AssertExpectations(t)
	schedules.AssertExpectations(t)
}
