package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/lending-engine/internal/app"
	"github.com/segyhp/lending-engine/internal/notification"
	"github.com/segyhp/lending-engine/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.Setup(ctx)
	if err != nil {
		logger.Fatal(err, "message", "failed to initialize")
	}
	defer infra.Close()
	defer logger.Sync()

	if infra.Redis == nil {
		logger.Fatal(errors.New("REDIS_URL is required"), "message", "notification worker needs redis")
	}

	sender, err := infra.EmailNotifier()
	if err != nil {
		logger.Fatal(err, "message", "failed to initialize email templates")
	}

	hostname, _ := os.Hostname()
	worker := notification.NewWorker(infra.Redis, notification.WorkerConfig{
		Stream:   infra.NotificationStream(),
		Group:    infra.Config.Notification.ConsumerGroup,
		Consumer: hostname,
		Block:    5 * time.Second,
	}, sender)

	logger.Info("notification worker started", "stream", infra.NotificationStream(), "consumer", hostname)

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal(err, "message", "notification worker stopped")
	}

	logger.Info("notification worker stopped")
}
