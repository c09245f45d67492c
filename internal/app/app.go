// Package app builds the shared infrastructure of the lending binaries from
// configuration.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/handler"
	"github.com/segyhp/lending-engine/internal/notification"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/repository/memory"
	"github.com/segyhp/lending-engine/internal/service"
	"github.com/segyhp/lending-engine/migrations"
	"github.com/segyhp/lending-engine/pkg/lock"
	"github.com/segyhp/lending-engine/pkg/logger"
	"github.com/segyhp/lending-engine/pkg/pg"
)

// Infra holds the opened stores and clients.
type Infra struct {
	Config *config.Config
	Repos  service.Repositories
	DB     *sqlx.DB
	Redis  redis.UniversalClient
}

// Setup loads configuration, initializes logging and opens the store and
// Redis client.
func Setup(ctx context.Context) (*Infra, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	infra := &Infra{Config: cfg}

	if err := infra.openStore(ctx); err != nil {
		return nil, err
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		infra.Redis = redis.NewClient(opts)
	}

	return infra, nil
}

func (i *Infra) openStore(ctx context.Context) error {
	if i.Config.Database.Driver == config.StoreDriverMemory {
		store := memory.NewStore()
		i.Repos = service.Repositories{
			Tx:           store,
			Users:        store.Users(),
			Products:     store.Products(),
			Applications: store.Applications(),
			Schedules:    store.Schedules(),
			Payments:     store.Payments(),
		}
		logger.Warn("[app] using in-memory store, data is not persisted")
		return nil
	}

	db, err := pg.Connect(ctx, pg.Config{
		URL:             i.Config.Database.URL,
		MaxOpenConns:    i.Config.Database.MaxOpenConns,
		MaxIdleConns:    i.Config.Database.MaxIdleConns,
		ConnMaxLifetime: i.Config.GetConnMaxLifetime(),
	})
	if err != nil {
		return err
	}

	if i.Config.Database.AutoMigrate {
		if err := pg.Migrate(db, migrations.FS); err != nil {
			_ = db.Close()
			return err
		}
	}

	conn := repository.NewDB(db)
	i.DB = db
	i.Repos = service.Repositories{
		Tx:           conn,
		Users:        repository.NewUserRepository(conn),
		Products:     repository.NewProductRepository(conn),
		Applications: repository.NewApplicationRepository(conn),
		Schedules:    repository.NewScheduleRepository(conn),
		Payments:     repository.NewPaymentRepository(conn),
	}
	return nil
}

// Locker returns the Redis lock when enabled and available, otherwise a
// process-local one.
func (i *Infra) Locker() lock.Locker {
	ttl := i.Config.GetLockTTL()
	if i.Redis != nil && i.Config.Redis.LockEnabled {
		return lock.NewRedisLocker(i.Redis, i.Config.Redis.KeyPrefix, ttl, ttl/2)
	}
	logger.Warn("[app] using process-local creation lock")
	return lock.NewLocalLocker(ttl / 2)
}

// NotificationStream is the prefixed Redis stream notifications travel on.
func (i *Infra) NotificationStream() string {
	return i.Config.Redis.KeyPrefix + i.Config.Notification.Stream
}

// Notifier builds the notifier the API uses. The returned wait func blocks
// until in-flight notifications finish.
func (i *Infra) Notifier() (notification.Notifier, func(), error) {
	var next notification.Notifier

	switch i.Config.Notification.Mode {
	case config.NotifierModeQueue:
		if i.Redis == nil {
			return nil, nil, fmt.Errorf("NOTIFICATION_MODE=queue requires REDIS_URL")
		}
		next = notification.NewQueueNotifier(i.Redis, i.NotificationStream())
	case config.NotifierModeSMTP:
		email, err := i.EmailNotifier()
		if err != nil {
			return nil, nil, err
		}
		next = email
	default:
		next = notification.LogNotifier{}
	}

	async := notification.NewAsyncNotifier(next, i.Config.GetNotificationTimeout())
	return async, async.Wait, nil
}

// EmailNotifier renders and sends emails through the configured SMTP relay.
func (i *Infra) EmailNotifier() (notification.Notifier, error) {
	n := i.Config.Notification
	if n.SMTPHost == "" {
		logger.Warn("[app] SMTP_HOST not set, emails are only logged")
		return notification.LogNotifier{}, nil
	}

	mailer := notification.NewSMTPMailer(notification.SMTPConfig{
		Host:     n.SMTPHost,
		Port:     n.SMTPPort,
		Username: n.SMTPUsername,
		Password: n.SMTPPassword,
		From:     n.FromAddress,
	})
	return notification.NewEmailNotifier(mailer, n.SupportEmail)
}

// Pingers lists the dependencies readiness depends on.
func (i *Infra) Pingers() map[string]handler.Pinger {
	checks := make(map[string]handler.Pinger)
	if i.DB != nil {
		checks["database"] = handler.PingFunc(i.DB.PingContext)
	}
	if i.Redis != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return i.Redis.Ping(ctx).Err()
		})
	}
	return checks
}

// Close releases the store and Redis connections.
func (i *Infra) Close() {
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			logger.Warn("[app] closing database", "error", err)
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			logger.Warn("[app] closing redis", "error", err)
		}
	}
}
