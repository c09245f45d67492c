package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/notification"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/logger"
	"github.com/segyhp/lending-engine/pkg/prom"
	"github.com/segyhp/lending-engine/pkg/utils"
)

// NoRepaymentPlanMessage is returned with an empty plan when the
// application does not exist.
const NoRepaymentPlanMessage = "There are no loan EMI payments"

// RepaymentService manages schedules, payments and penalties.
type RepaymentService struct {
	repos         Repositories
	notifications notification.Deliverer
	rules         Rules
	now           Clock
}

func NewRepaymentService(repos Repositories, notifier notification.Notifier, rules Rules, now Clock) *RepaymentService {
	if now == nil {
		now = systemClock
	}
	return &RepaymentService{repos: repos, notifications: notification.DelivererFor(notifier), rules: rules, now: now}
}

// GenerateRepaymentPlan (re)builds and stores the schedule of an Approved
// application. Calling it again replaces the unpaid schedule.
func (s *RepaymentService) GenerateRepaymentPlan(ctx context.Context, applicationID uuid.UUID, req *domain.GenerateRepaymentPlanRequest, actor string) (*domain.RepaymentPlanResponse, error) {
	if req == nil {
		req = &domain.GenerateRepaymentPlanRequest{}
	}

	var resp *domain.RepaymentPlanResponse

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		app, err := s.repos.Applications.LockByID(ctx, applicationID)
		if err != nil {
			return storeError(err, loanNotFound(applicationID))
		}
		if app.Status != domain.LoanStatusApproved {
			return errors.Validation(errors.ErrCodeLoanNotApproved, "Repayment plan can only be generated for approved loans")
		}

		tenure := app.TenureMonths
		if req.TenureMonths != nil {
			tenure = *req.TenureMonths
		}
		if !s.rules.tenureAllowed(tenure) {
			return errors.Validation(errors.ErrCodeUnsupportedTenure, "Unsupported tenure for a repayment plan")
		}

		rate := app.InterestRate
		if req.InterestRate != nil {
			rate = *req.InterestRate
		}

		start := utils.TruncateToDay(s.now())
		if req.StartDate != nil {
			start = utils.TruncateToDay(*req.StartDate)
		}

		table, err := Amortize(app.RequestedAmount, rate, tenure, start)
		if err != nil {
			return err
		}

		entries, err := replaceSchedule(ctx, s.repos, app, table, s.now, actor)
		if err != nil {
			return err
		}

		resp = &domain.RepaymentPlanResponse{
			LoanApplicationID: app.ID,
			EMI:               table.EMI,
			TenureMonths:      tenure,
			InterestRate:      rate,
			Persisted:         true,
			Lines:             table.Lines,
			Entries:           entries,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("[repayment] plan generated", "application_id", applicationID, "tenure", resp.TenureMonths, "emi", resp.EMI.String())
	return resp, nil
}

// GetRepaymentPlan returns the stored schedule, or a preview computed from
// the application's terms when none is stored. A nil plan means the
// application does not exist.
func (s *RepaymentService) GetRepaymentPlan(ctx context.Context, applicationID uuid.UUID) (*domain.RepaymentPlanResponse, error) {
	app, err := s.repos.Applications.GetByID(ctx, applicationID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, storeError(err, nil)
	}

	entries, err := s.repos.Schedules.GetActiveByApplication(ctx, applicationID)
	if err != nil {
		return nil, storeError(err, nil)
	}

	if len(entries) > 0 {
		return &domain.RepaymentPlanResponse{
			LoanApplicationID: app.ID,
			EMI:               entries[0].PrincipalAmount.Add(entries[0].InterestAmount),
			TenureMonths:      len(entries),
			InterestRate:      app.InterestRate,
			Persisted:         true,
			Entries:           entries,
		}, nil
	}

	table, err := Amortize(app.RequestedAmount, app.InterestRate, app.TenureMonths, utils.TruncateToDay(s.now()))
	if err != nil {
		return nil, err
	}

	return &domain.RepaymentPlanResponse{
		LoanApplicationID: app.ID,
		EMI:               table.EMI,
		TenureMonths:      app.TenureMonths,
		InterestRate:      app.InterestRate,
		Persisted:         false,
		Lines:             table.Lines,
	}, nil
}

// RecordPayment pays one installment. The application row is locked first,
// so the payment serializes with plan regeneration and approval; the entry
// flip and the transaction insert commit together and a concurrent second
// payment gets a conflict.
func (s *RepaymentService) RecordPayment(ctx context.Context, req *domain.RecordPaymentRequest, actor string) (*domain.PaymentTransaction, error) {
	var (
		payment *domain.PaymentTransaction
		entry   *domain.RepaymentScheduleEntry
		userID  uuid.UUID
	)

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		app, err := s.repos.Applications.LockByID(ctx, req.LoanApplicationID)
		if err != nil {
			return storeError(err, entryNotFound(req.RepaymentScheduleID))
		}
		userID = app.UserID

		entry, err = s.repos.Schedules.GetByID(ctx, req.RepaymentScheduleID)
		if err != nil {
			return storeError(err, entryNotFound(req.RepaymentScheduleID))
		}
		if entry.LoanApplicationID != app.ID || !entry.IsActive {
			return errors.WrapScheduleEntryNotFound(req.RepaymentScheduleID.String())
		}
		if entry.IsPaid() {
			return errors.WrapInstallmentAlreadyPaid(entry.ID.String())
		}
		if !req.Amount.IsPositive() {
			return errors.Validation(errors.ErrCodeInvalidPayment, "Payment amount must be greater than zero")
		}
		if strings.TrimSpace(req.PaymentMethod) == "" {
			return errors.Validation(errors.ErrCodeInvalidPayment, "Payment method is required")
		}

		now := s.now()
		if err := s.repos.Schedules.MarkPaid(ctx, entry.ID, now, actor); err != nil {
			if stderrors.Is(err, repository.ErrAlreadyPaid) {
				return errors.WrapInstallmentAlreadyPaid(entry.ID.String())
			}
			return storeError(err, entryNotFound(entry.ID))
		}

		payment = &domain.PaymentTransaction{
			ID:                  uuid.New(),
			LoanApplicationID:   app.ID,
			RepaymentScheduleID: entry.ID,
			Amount:              req.Amount,
			PaymentMethod:       strings.TrimSpace(req.PaymentMethod),
			PaymentDate:         now,
			Status:              domain.PaymentStatusCompleted,
			TransactionRef:      uuid.NewString(),
			IsActive:            true,
			CreatedAt:           now,
			CreatedBy:           actor,
		}
		return storeError(s.repos.Payments.Create(ctx, payment), nil)
	})
	if err != nil {
		return nil, err
	}

	prom.PaymentsRecorded.Inc()
	logger.Info("[repayment] payment recorded", "application_id", payment.LoanApplicationID, "entry_id", entry.ID,
		"installment", entry.InstallmentNumber, "amount", payment.Amount.String(), "reference", payment.TransactionRef)

	s.notifyPayment(ctx, userID, payment.ID)

	return payment, nil
}

func (s *RepaymentService) notifyPayment(ctx context.Context, userID, paymentID uuid.UUID) {
	users := s.repos.Users
	s.notifications.Deliver(ctx, notification.KindPaymentConfirmed, func(ctx context.Context, n notification.Notifier) error {
		email, err := applicantEmail(ctx, users, userID)
		if err != nil {
			return err
		}
		return n.NotifyPaymentConfirmed(ctx, email, paymentID)
	})
}

// ApplyPenalty adds the configured penalty to an installment's total. The
// installment status does not change.
func (s *RepaymentService) ApplyPenalty(ctx context.Context, entryID uuid.UUID, actor string) (*domain.RepaymentScheduleEntry, error) {
	var entry *domain.RepaymentScheduleEntry

	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repos.Schedules.IncreaseTotal(ctx, entryID, s.rules.PenaltyAmount, s.now(), actor); err != nil {
			return storeError(err, entryNotFound(entryID))
		}

		var err error
		entry, err = s.repos.Schedules.GetByID(ctx, entryID)
		return storeError(err, entryNotFound(entryID))
	})
	if err != nil {
		return nil, err
	}

	prom.PenaltiesApplied.Inc()
	logger.Info("[repayment] penalty applied", "entry_id", entryID, "penalty", s.rules.PenaltyAmount.String(), "total", entry.TotalAmount.String())

	return entry, nil
}

func (s *RepaymentService) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*domain.RepaymentScheduleEntry, error) {
	entries, err := s.repos.Schedules.GetActiveByApplication(ctx, applicationID)
	return entries, storeError(err, nil)
}

func (s *RepaymentService) ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]*domain.RepaymentScheduleEntry, error) {
	entries, err := s.repos.Schedules.ListPendingByUser(ctx, userID)
	return entries, storeError(err, nil)
}

// ListOverdue returns unpaid installments due before today (UTC).
func (s *RepaymentService) ListOverdue(ctx context.Context) ([]*domain.RepaymentScheduleEntry, error) {
	entries, err := s.repos.Schedules.ListOverdue(ctx, utils.TruncateToDay(s.now().UTC()))
	return entries, storeError(err, nil)
}

func (s *RepaymentService) ListAll(ctx context.Context) ([]*domain.RepaymentScheduleEntry, error) {
	entries, err := s.repos.Schedules.ListAll(ctx)
	return entries, storeError(err, nil)
}

func (s *RepaymentService) ListPayments(ctx context.Context, applicationID uuid.UUID) ([]*domain.PaymentTransaction, error) {
	payments, err := s.repos.Payments.ListByApplication(ctx, applicationID)
	return payments, storeError(err, nil)
}

// OverdueScan is the result of a scheduler pass.
type OverdueScan struct {
	Overdue     int
	Penalized   int
	Outstanding decimal.Decimal
}

// ScanOverdue counts overdue installments and, when penalize is set, applies
// the penalty to installments that fell due on the previous day. Each
// installment is therefore penalized at most once by daily runs.
func (s *RepaymentService) ScanOverdue(ctx context.Context, penalize bool, actor string) (*OverdueScan, error) {
	today := utils.TruncateToDay(s.now().UTC())

	entries, err := s.repos.Schedules.ListOverdue(ctx, today)
	if err != nil {
		return nil, storeError(err, nil)
	}

	scan := &OverdueScan{Overdue: len(entries), Outstanding: decimal.Zero}
	yesterday := today.Add(-24 * time.Hour)

	for _, e := range entries {
		scan.Outstanding = scan.Outstanding.Add(e.TotalAmount)

		// Overdue today but not yesterday: it fell due yesterday.
		if !penalize || utils.IsDateOverdue(e.DueDate, yesterday) {
			continue
		}
		if _, err := s.ApplyPenalty(ctx, e.ID, actor); err != nil {
			logger.Error("[repayment] auto penalty failed", "entry_id", e.ID, "error", err)
			continue
		}
		scan.Penalized++
		scan.Outstanding = scan.Outstanding.Add(s.rules.PenaltyAmount)
	}

	prom.OverdueInstallments.Set(float64(scan.Overdue))
	return scan, nil
}
