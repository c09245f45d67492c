package service

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/notification"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/lock"
	"github.com/segyhp/lending-engine/pkg/logger"
	"github.com/segyhp/lending-engine/pkg/prom"
	"github.com/segyhp/lending-engine/pkg/utils"
)

const sendToDecisionReason = "Sent to decision application"

// LoanApplicationService drives applications from submission to closure.
type LoanApplicationService struct {
	repos         Repositories
	eligibility   *EligibilityValidator
	locker        lock.Locker
	notifications notification.Deliverer
	rules         Rules
	now           Clock
}

func NewLoanApplicationService(repos Repositories, locker lock.Locker, notifier notification.Notifier, rules Rules, now Clock) *LoanApplicationService {
	if now == nil {
		now = systemClock
	}
	return &LoanApplicationService{
		repos:         repos,
		eligibility:   NewEligibilityValidator(repos, rules, now),
		locker:        locker,
		notifications: notification.DelivererFor(notifier),
		rules:         rules,
		now:           now,
	}
}

// Create validates and stores a new Pending application.
func (s *LoanApplicationService) Create(ctx context.Context, req *domain.CreateLoanApplicationRequest, actor string) (*domain.LoanApplication, error) {
	req.NationalID = strings.TrimSpace(req.NationalID)

	if err := s.eligibility.Validate(ctx, req); err != nil {
		if be := errors.AsBusinessError(err); be.Kind != errors.KindService {
			prom.ApplicationsRejectedByRule.WithLabelValues(be.Code).Inc()
		}
		return nil, err
	}

	release, err := lock.AcquireAll(ctx, s.locker,
		"loan-application:user:"+req.UserID.String(),
		"loan-application:national-id:"+req.NationalID,
	)
	if err != nil {
		if stderrors.Is(err, lock.ErrNotAcquired) {
			return nil, errors.Conflict(errors.ErrCodeCreationInProgress, "Another application for this user is being created")
		}
		return nil, errors.WrapCacheError(err)
	}
	defer release()

	now := s.now()
	app := &domain.LoanApplication{
		ID:              uuid.New(),
		UserID:          req.UserID,
		Gender:          strings.TrimSpace(req.Gender),
		DateOfBirth:     req.DateOfBirth,
		NationalID:      req.NationalID,
		Address:         strings.TrimSpace(req.Address),
		Income:          req.Income,
		EmploymentType:  strings.TrimSpace(req.EmploymentType),
		LoanProductID:   req.LoanProductID,
		RequestedAmount: req.RequestedAmount,
		TenureMonths:    req.TenureMonths,
		InterestRate:    req.InterestRate,
		Status:          domain.LoanStatusPending,
		IsActive:        true,
		CreatedAt:       now,
		CreatedBy:       actor,
	}

	err = s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.eligibility.CheckUniqueness(ctx, req); err != nil {
			return err
		}
		return s.repos.Applications.Create(ctx, app)
	})
	if err != nil {
		return nil, duplicateToConflict(err)
	}

	prom.ApplicationsCreated.Inc()
	logger.Info("[loan-application] created", "id", app.ID, "user_id", app.UserID, "amount", app.RequestedAmount.String())

	return app, nil
}

func duplicateToConflict(err error) error {
	var dup *repository.DuplicateError
	if stderrors.As(err, &dup) {
		switch dup.Constraint {
		case repository.ConstraintNationalID:
			return errors.Conflict(errors.ErrCodeNationalIDUsed, "National ID has already been used for a loan application")
		case repository.ConstraintActiveUser:
			return errors.Conflict(errors.ErrCodeActiveLoanExists, "User already has an active loan application")
		}
	}
	return storeError(err, nil)
}

func (s *LoanApplicationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	app, err := s.repos.Applications.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, loanNotFound(id))
	}
	return app, nil
}

func (s *LoanApplicationService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.LoanApplication, error) {
	apps, err := s.repos.Applications.ListByUser(ctx, userID)
	return apps, storeError(err, nil)
}

func (s *LoanApplicationService) ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.LoanApplication, error) {
	apps, err := s.repos.Applications.ListByStatus(ctx, status)
	return apps, storeError(err, nil)
}

func (s *LoanApplicationService) ListAll(ctx context.Context) ([]*domain.LoanApplication, error) {
	apps, err := s.repos.Applications.ListAll(ctx)
	return apps, storeError(err, nil)
}

// UpdateStatus moves the application to rawStatus if the state machine
// allows it. Approval generates the repayment schedule in the same
// transaction; Completed is handled by Finalize.
func (s *LoanApplicationService) UpdateStatus(ctx context.Context, id uuid.UUID, rawStatus, reason, actor string) (*domain.LoanApplication, error) {
	target, err := domain.ParseLoanStatus(rawStatus)
	if err != nil {
		return nil, errors.Validation(errors.ErrCodeInvalidStatus, "Invalid status value: "+rawStatus)
	}

	if target == domain.LoanStatusCompleted {
		return s.Finalize(ctx, id, actor)
	}

	if strings.TrimSpace(reason) == "" {
		reason = "Status updated to " + target.String()
	}

	return s.transition(ctx, id, target, reason, actor)
}

// SendToDecision hands the application to the external decision process.
func (s *LoanApplicationService) SendToDecision(ctx context.Context, id uuid.UUID, actor string) (*domain.LoanApplication, error) {
	return s.transition(ctx, id, domain.LoanStatusProcessing, sendToDecisionReason, actor)
}

func (s *LoanApplicationService) transition(ctx context.Context, id uuid.UUID, target domain.LoanStatus, reason, actor string) (*domain.LoanApplication, error) {
	var (
		app  *domain.LoanApplication
		from domain.LoanStatus
	)

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.repos.Applications.LockByID(ctx, id)
		if err != nil {
			return storeError(err, loanNotFound(id))
		}

		from = app.Status
		if from.IsTerminal() {
			return errors.Validation(errors.ErrCodeInvalidTransition,
				"Application is already "+from.String()+" and its status can no longer change")
		}
		if !from.CanTransitionTo(target) {
			return errors.Validation(errors.ErrCodeInvalidTransition,
				"Cannot change status from "+from.String()+" to "+target.String())
		}

		decidedAt := s.now()
		app.Decide(target, reason, decidedAt, actor)
		if err := s.repos.Applications.Update(ctx, app); err != nil {
			return storeError(err, loanNotFound(id))
		}

		if target == domain.LoanStatusApproved {
			table, err := Amortize(app.RequestedAmount, app.InterestRate, app.TenureMonths, utils.TruncateToDay(decidedAt))
			if err != nil {
				return err
			}
			if _, err := replaceSchedule(ctx, s.repos, app, table, s.now, actor); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	prom.StatusTransitions.WithLabelValues(from.String(), target.String()).Inc()
	logger.Info("[loan-application] status changed", "id", app.ID, "from", from, "to", target, "by", actor)

	s.notifyDecision(ctx, app, reason)

	return app, nil
}

func (s *LoanApplicationService) notifyDecision(ctx context.Context, app *domain.LoanApplication, reason string) {
	var kind notification.Kind
	switch app.Status {
	case domain.LoanStatusApproved:
		kind = notification.KindApproved
	case domain.LoanStatusRejected:
		kind = notification.KindRejected
	default:
		return
	}

	users, userID, applicationID := s.repos.Users, app.UserID, app.ID
	s.notifications.Deliver(ctx, kind, func(ctx context.Context, n notification.Notifier) error {
		email, err := applicantEmail(ctx, users, userID)
		if err != nil {
			return err
		}
		if kind == notification.KindApproved {
			return n.NotifyApproved(ctx, email, applicationID)
		}
		return n.NotifyRejected(ctx, email, reason)
	})
}

// Finalize closes an Approved application once every installment is paid.
func (s *LoanApplicationService) Finalize(ctx context.Context, id uuid.UUID, actor string) (*domain.LoanApplication, error) {
	var app *domain.LoanApplication

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.repos.Applications.LockByID(ctx, id)
		if err != nil {
			return storeError(err, loanNotFound(id))
		}

		if app.Status != domain.LoanStatusApproved {
			return errors.Conflict(errors.ErrCodeInvalidTransition,
				"Only approved applications can be finalized, current status is "+app.Status.String())
		}

		entries, err := s.repos.Schedules.GetActiveByApplication(ctx, id)
		if err != nil {
			return storeError(err, nil)
		}
		if len(entries) == 0 {
			return errors.Conflict(errors.ErrCodeRepaymentsOutstanding, "Application has no repayment schedule")
		}
		for _, e := range entries {
			if !e.IsPaid() {
				return errors.Conflict(errors.ErrCodeRepaymentsOutstanding, "All repayments must be paid before finalizing the loan")
			}
		}

		app.Decide(domain.LoanStatusCompleted, "All repayments completed", s.now(), actor)
		app.IsActive = false
		return storeError(s.repos.Applications.Update(ctx, app), loanNotFound(id))
	})
	if err != nil {
		return nil, err
	}

	prom.StatusTransitions.WithLabelValues(domain.LoanStatusApproved.String(), domain.LoanStatusCompleted.String()).Inc()
	logger.Info("[loan-application] finalized", "id", app.ID, "by", actor)

	return app, nil
}
