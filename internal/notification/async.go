package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/lending-engine/pkg/logger"
	"github.com/segyhp/lending-engine/pkg/prom"
)

// AsyncNotifier runs every notification on its own goroutine, detached from
// the caller's cancellation and bounded by timeout. Errors are logged and
// counted, never returned.
type AsyncNotifier struct {
	next    Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncNotifier(next Notifier, timeout time.Duration) *AsyncNotifier {
	return &AsyncNotifier{next: next, timeout: timeout}
}

func (a *AsyncNotifier) NotifyApproved(ctx context.Context, email string, applicationID uuid.UUID) error {
	a.dispatch(ctx, KindApproved, func(ctx context.Context) error {
		return a.next.NotifyApproved(ctx, email, applicationID)
	})
	return nil
}

func (a *AsyncNotifier) NotifyRejected(ctx context.Context, email, reason string) error {
	a.dispatch(ctx, KindRejected, func(ctx context.Context) error {
		return a.next.NotifyRejected(ctx, email, reason)
	})
	return nil
}

func (a *AsyncNotifier) NotifyPaymentConfirmed(ctx context.Context, email string, transactionID uuid.UUID) error {
	a.dispatch(ctx, KindPaymentConfirmed, func(ctx context.Context) error {
		return a.next.NotifyPaymentConfirmed(ctx, email, transactionID)
	})
	return nil
}

// Deliver runs fn on its own goroutine with the wrapped notifier, so lookups
// fn performs stay off the caller's path too.
func (a *AsyncNotifier) Deliver(ctx context.Context, kind Kind, fn func(ctx context.Context, n Notifier) error) {
	a.dispatch(ctx, kind, func(ctx context.Context) error {
		return fn(ctx, a.next)
	})
}

func (a *AsyncNotifier) dispatch(parent context.Context, kind Kind, send func(ctx context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				prom.NotificationFailures.WithLabelValues(string(kind)).Inc()
				logger.Error("[notification] panic while sending", "kind", kind, "panic", p)
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), a.timeout)
		defer cancel()

		err := send(ctx)
		if errors.Is(err, ErrNoRecipient) {
			logger.Debug("[notification] skipped, no recipient", "kind", kind)
			return
		}
		if err != nil {
			prom.NotificationFailures.WithLabelValues(string(kind)).Inc()
			logger.Warn("[notification] delivery failed", "kind", kind, "error", err)
			return
		}
		prom.NotificationsSent.WithLabelValues(string(kind)).Inc()
	}()
}

// Wait blocks until every dispatched notification has finished. Used on
// shutdown and in tests.
func (a *AsyncNotifier) Wait() {
	a.wg.Wait()
}
