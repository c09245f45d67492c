// Package notification delivers applicant emails for lifecycle events.
// Delivery is best-effort: callers never see a notification failure.
package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/segyhp/lending-engine/pkg/logger"
)

// Kind identifies the event a notification reports.
type Kind string

const (
	KindApproved         Kind = "loan_approved"
	KindRejected         Kind = "loan_rejected"
	KindPaymentConfirmed Kind = "payment_confirmed"
)

// Notifier sends applicant notifications.
type Notifier interface {
	NotifyApproved(ctx context.Context, email string, applicationID uuid.UUID) error
	NotifyRejected(ctx context.Context, email, reason string) error
	NotifyPaymentConfirmed(ctx context.Context, email string, transactionID uuid.UUID) error
}

// ErrNoRecipient is returned by delivery work that found no address to send
// to. It is skipped, not counted as a failure.
var ErrNoRecipient = errors.New("notification has no recipient")

// Deliverer runs notification work, including any lookup it needs, off the
// caller's path where the implementation supports it. fn sends through n.
type Deliverer interface {
	Deliver(ctx context.Context, kind Kind, fn func(ctx context.Context, n Notifier) error)
}

// DelivererFor returns n itself when it is a Deliverer, otherwise a
// Deliverer that runs the work inline and logs its errors.
func DelivererFor(n Notifier) Deliverer {
	if d, ok := n.(Deliverer); ok {
		return d
	}
	return inlineDeliverer{next: n}
}

type inlineDeliverer struct {
	next Notifier
}

func (d inlineDeliverer) Deliver(ctx context.Context, kind Kind, fn func(ctx context.Context, n Notifier) error) {
	if err := fn(ctx, d.next); err != nil && !errors.Is(err, ErrNoRecipient) {
		logger.Warn("[notification] delivery failed", "kind", kind, "error", err)
	}
}

// Message is the transport form of a notification.
type Message struct {
	Kind          Kind   `json:"kind"`
	Email         string `json:"email"`
	ApplicationID string `json:"application_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Dispatch calls the Notifier method matching m.Kind.
func Dispatch(ctx context.Context, n Notifier, m Message) error {
	switch m.Kind {
	case KindApproved:
		id, err := uuid.Parse(m.ApplicationID)
		if err != nil {
			return err
		}
		return n.NotifyApproved(ctx, m.Email, id)
	case KindRejected:
		return n.NotifyRejected(ctx, m.Email, m.Reason)
	case KindPaymentConfirmed:
		id, err := uuid.Parse(m.TransactionID)
		if err != nil {
			return err
		}
		return n.NotifyPaymentConfirmed(ctx, m.Email, id)
	}
	return &UnknownKindError{Kind: m.Kind}
}

type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return "unknown notification kind: " + string(e.Kind)
}

// LogNotifier only writes notifications to the log. Used in development.
type LogNotifier struct{}

func (LogNotifier) NotifyApproved(_ context.Context, email string, applicationID uuid.UUID) error {
	logger.Info("[notification] loan approved", "email", email, "application_id", applicationID)
	return nil
}

func (LogNotifier) NotifyRejected(_ context.Context, email, reason string) error {
	logger.Info("[notification] loan rejected", "email", email, "reason", reason)
	return nil
}

func (LogNotifier) NotifyPaymentConfirmed(_ context.Context, email string, transactionID uuid.UUID) error {
	logger.Info("[notification] payment confirmed", "email", email, "transaction_id", transactionID)
	return nil
}
