package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/lending-engine/pkg/logger"
	"github.com/segyhp/lending-engine/pkg/prom"
)

const payloadField = "payload"

// QueueNotifier publishes notifications to a Redis stream for the notifier
// worker to deliver.
type QueueNotifier struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

func NewQueueNotifier(client redis.UniversalClient, stream string) *QueueNotifier {
	return &QueueNotifier{client: client, stream: stream, maxLen: 100000}
}

func (q *QueueNotifier) NotifyApproved(ctx context.Context, email string, applicationID uuid.UUID) error {
	return q.publish(ctx, Message{Kind: KindApproved, Email: email, ApplicationID: applicationID.String()})
}

func (q *QueueNotifier) NotifyRejected(ctx context.Context, email, reason string) error {
	return q.publish(ctx, Message{Kind: KindRejected, Email: email, Reason: reason})
}

func (q *QueueNotifier) NotifyPaymentConfirmed(ctx context.Context, email string, transactionID uuid.UUID) error {
	return q.publish(ctx, Message{Kind: KindPaymentConfirmed, Email: email, TransactionID: transactionID.String()})
}

func (q *QueueNotifier) publish(ctx context.Context, m Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]interface{}{payloadField: string(payload)},
	}).Err()
}

// WorkerConfig configures a stream consumer.
type WorkerConfig struct {
	Stream   string
	Group    string
	Consumer string
	Batch    int64
	// Block is how long a read waits for new entries. Negative means do not
	// wait at all.
	Block time.Duration
}

// Worker consumes the notification stream and delivers every message with
// the wrapped Notifier. Messages that fail stay pending in the group.
type Worker struct {
	client   redis.UniversalClient
	cfg      WorkerConfig
	notifier Notifier
}

func NewWorker(client redis.UniversalClient, cfg WorkerConfig, notifier Notifier) *Worker {
	if cfg.Batch <= 0 {
		cfg.Batch = 10
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "worker-" + uuid.NewString()[:8]
	}
	return &Worker{client: client, cfg: cfg, notifier: notifier}
}

// EnsureGroup creates the consumer group (and stream) if missing.
func (w *Worker) EnsureGroup(ctx context.Context) error {
	err := w.client.XGroupCreateMkStream(ctx, w.cfg.Stream, w.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Run processes messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.EnsureGroup(ctx); err != nil {
		return err
	}

	logger.Info("[notifier-worker] consuming", "stream", w.cfg.Stream, "group", w.cfg.Group, "consumer", w.cfg.Consumer)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := w.ProcessOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("[notifier-worker] read failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessOnce reads one batch and returns the number of messages delivered
// and acknowledged.
func (w *Worker) ProcessOnce(ctx context.Context) (int, error) {
	streams, err := w.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    w.cfg.Group,
		Consumer: w.cfg.Consumer,
		Streams:  []string{w.cfg.Stream, ">"},
		Count:    w.cfg.Batch,
		Block:    w.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if w.handle(ctx, msg) {
				delivered++
			}
		}
	}

	return delivered, nil
}

func (w *Worker) handle(ctx context.Context, msg redis.XMessage) bool {
	raw, _ := msg.Values[payloadField].(string)

	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		// Undecodable entries can never succeed; drop them.
		logger.Error("[notifier-worker] bad payload", "id", msg.ID, "error", err)
		_ = w.client.XAck(ctx, w.cfg.Stream, w.cfg.Group, msg.ID).Err()
		return false
	}

	if err := Dispatch(ctx, w.notifier, m); err != nil {
		prom.NotificationFailures.WithLabelValues(string(m.Kind)).Inc()
		logger.Warn("[notifier-worker] delivery failed", "id", msg.ID, "kind", m.Kind, "error", err)
		return false
	}

	if err := w.client.XAck(ctx, w.cfg.Stream, w.cfg.Group, msg.ID).Err(); err != nil {
		logger.Error("[notifier-worker] ack failed", "id", msg.ID, "error", err)
		return false
	}

	prom.NotificationsSent.WithLabelValues(string(m.Kind)).Inc()
	return true
}
