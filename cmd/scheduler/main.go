package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/segyhp/lending-engine/internal/app"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/notification"
	"github.com/segyhp/lending-engine/internal/service"
	"github.com/segyhp/lending-engine/pkg/logger"
)

const schedulerActor = "scheduler"

// cronLogger routes cron's own logging through the service logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("[cron] "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("[cron] "+msg, append(keysAndValues, "error", err)...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.Setup(ctx)
	if err != nil {
		logger.Fatal(err, "message", "failed to initialize")
	}
	defer infra.Close()
	defer logger.Sync()

	cfg := infra.Config
	repayments := service.NewRepaymentService(infra.Repos, notification.LogNotifier{}, service.RulesFromConfig(cfg), nil)

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.GetSchedulerLocation()),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)

	if err := setupCronJobs(ctx, c, cfg, repayments); err != nil {
		logger.Fatal(err, "message", "failed to schedule jobs")
	}

	c.Start()
	logger.Info("scheduler started", "overdue_cron", cfg.Scheduler.OverdueCron, "auto_penalty", cfg.Scheduler.AutoPenalty)

	<-ctx.Done()

	logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}

func setupCronJobs(ctx context.Context, c *cron.Cron, cfg *config.Config, repayments *service.RepaymentService) error {
	_, err := c.AddFunc(cfg.Scheduler.OverdueCron, func() {
		runOverdueScan(ctx, repayments, cfg.Scheduler.AutoPenalty)
	})
	return err
}

func runOverdueScan(ctx context.Context, repayments *service.RepaymentService, penalize bool) {
	start := time.Now()

	scan, err := repayments.ScanOverdue(ctx, penalize, schedulerActor)
	if err != nil {
		logger.Error("overdue scan failed", "error", err)
		return
	}

	logger.Info("overdue scan finished",
		"overdue", scan.Overdue,
		"penalized", scan.Penalized,
		"outstanding", scan.Outstanding.StringFixed(2),
		"duration", time.Since(start).String(),
	)
}
