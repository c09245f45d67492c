package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/notification"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/pkg/errors"
)

// storeError passes business errors through, maps ErrNotFound with
// notFound, and wraps everything else as a service failure.
func storeError(err error, notFound func() *errors.BusinessError) error {
	if err == nil {
		return nil
	}
	var be *errors.BusinessError
	if stderrors.As(err, &be) {
		return be
	}
	if notFound != nil && stderrors.Is(err, repository.ErrNotFound) {
		return notFound()
	}
	return errors.WrapDatabaseError(err)
}

func loanNotFound(id uuid.UUID) func() *errors.BusinessError {
	return func() *errors.BusinessError { return errors.WrapLoanNotFound(id.String()) }
}

func entryNotFound(id uuid.UUID) func() *errors.BusinessError {
	return func() *errors.BusinessError { return errors.WrapScheduleEntryNotFound(id.String()) }
}

// replaceSchedule regenerates the active schedule of app. It refuses when any
// active entry is already paid. Must run inside a transaction.
func replaceSchedule(ctx context.Context, repos Repositories, app *domain.LoanApplication, table *Amortization, now Clock, actor string) ([]*domain.RepaymentScheduleEntry, error) {
	current, err := repos.Schedules.GetActiveByApplication(ctx, app.ID)
	if err != nil {
		return nil, storeError(err, nil)
	}
	for _, e := range current {
		if e.IsPaid() {
			return nil, errors.Conflict(errors.ErrCodeScheduleLocked,
				"Repayment schedule already has paid installments and cannot be regenerated")
		}
	}

	at := now()
	entries := table.ScheduleEntries(app.ID, at, actor)
	if err := repos.Schedules.ReplaceSchedule(ctx, app.ID, entries, at, actor); err != nil {
		return nil, storeError(err, nil)
	}

	return entries, nil
}

// applicantEmail looks up the notification recipient of a user. It runs
// inside the detached notification work, never on the request path.
func applicantEmail(ctx context.Context, users repository.UserRepository, userID uuid.UUID) (string, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("look up applicant %s: %w", userID, err)
	}
	if strings.TrimSpace(user.Email) == "" {
		return "", notification.ErrNoRecipient
	}
	return user.Email, nil
}
