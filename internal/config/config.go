package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	NotifierModeLog   = "log"
	NotifierModeQueue = "queue"
	NotifierModeSMTP  = "smtp"
)

// Config holds all configuration for our application
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Scheduler    SchedulerConfig
	Logging      LoggingConfig
	Business     BusinessConfig
	Notification NotificationConfig
	Health       HealthConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Env         string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
	AutoMigrate     bool
}

type RedisConfig struct {
	URL         string
	KeyPrefix   string
	LockTTL     string
	LockEnabled bool
}

type SchedulerConfig struct {
	OverdueCron string
	Timezone    string
	AutoPenalty bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

type BusinessConfig struct {
	MinAge             int
	MaxAge             int
	MinLoanAmount      string
	MaxLoanAmount      string
	IncomeMultiplier   string
	MaxEMIIncomeRatio  string
	PenaltyAmount      string
	AllowedPlanTenures []int
}

type NotificationConfig struct {
	Mode          string
	Timeout       string
	Stream        string
	ConsumerGroup string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	FromAddress   string
	SupportEmail  string
}

type HealthConfig struct {
	Timeout string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DATABASE_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("REDIS_KEY_PREFIX", "lending:")
	v.SetDefault("REDIS_LOCK_TTL", "10s")
	v.SetDefault("REDIS_LOCK_ENABLED", true)

	v.SetDefault("SCHEDULER_OVERDUE_CRON", "0 0 1 * * *")
	v.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	v.SetDefault("SCHEDULER_AUTO_PENALTY", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BUSINESS_MIN_AGE", 20)
	v.SetDefault("BUSINESS_MAX_AGE", 100)
	v.SetDefault("BUSINESS_MIN_LOAN_AMOUNT", "10000")
	v.SetDefault("BUSINESS_MAX_LOAN_AMOUNT", "1000000")
	v.SetDefault("BUSINESS_INCOME_MULTIPLIER", "3")
	v.SetDefault("BUSINESS_MAX_EMI_INCOME_RATIO", "0.6")
	v.SetDefault("BUSINESS_PENALTY_AMOUNT", "500")
	v.SetDefault("BUSINESS_ALLOWED_PLAN_TENURES", "6,12,24")

	v.SetDefault("NOTIFICATION_MODE", NotifierModeLog)
	v.SetDefault("NOTIFICATION_TIMEOUT", "10s")
	v.SetDefault("NOTIFICATION_STREAM", "notifications")
	v.SetDefault("NOTIFICATION_CONSUMER_GROUP", "mailer")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "no-reply@lending.local")
	v.SetDefault("NOTIFICATION_SUPPORT_EMAIL", "support@lending.local")

	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Don't fail if .env file doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")
	_ = v.ReadInConfig()

	config, err := fromViper(v)
	if err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	tenures, err := parseInts(v.GetString("BUSINESS_ALLOWED_PLAN_TENURES"))
	if err != nil {
		return nil, fmt.Errorf("BUSINESS_ALLOWED_PLAN_TENURES: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:        v.GetString("SERVER_PORT"),
			Host:        v.GetString("SERVER_HOST"),
			Env:         v.GetString("ENV"),
			CORSOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("STORE_DRIVER")),
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DATABASE_CONN_MAX_LIFETIME"),
			AutoMigrate:     v.GetBool("DATABASE_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			URL:         v.GetString("REDIS_URL"),
			KeyPrefix:   v.GetString("REDIS_KEY_PREFIX"),
			LockTTL:     v.GetString("REDIS_LOCK_TTL"),
			LockEnabled: v.GetBool("REDIS_LOCK_ENABLED"),
		},
		Scheduler: SchedulerConfig{
			OverdueCron: v.GetString("SCHEDULER_OVERDUE_CRON"),
			Timezone:    v.GetString("SCHEDULER_TIMEZONE"),
			AutoPenalty: v.GetBool("SCHEDULER_AUTO_PENALTY"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Business: BusinessConfig{
			MinAge:             v.GetInt("BUSINESS_MIN_AGE"),
			MaxAge:             v.GetInt("BUSINESS_MAX_AGE"),
			MinLoanAmount:      v.GetString("BUSINESS_MIN_LOAN_AMOUNT"),
			MaxLoanAmount:      v.GetString("BUSINESS_MAX_LOAN_AMOUNT"),
			IncomeMultiplier:   v.GetString("BUSINESS_INCOME_MULTIPLIER"),
			MaxEMIIncomeRatio:  v.GetString("BUSINESS_MAX_EMI_INCOME_RATIO"),
			PenaltyAmount:      v.GetString("BUSINESS_PENALTY_AMOUNT"),
			AllowedPlanTenures: tenures,
		},
		Notification: NotificationConfig{
			Mode:          strings.ToLower(v.GetString("NOTIFICATION_MODE")),
			Timeout:       v.GetString("NOTIFICATION_TIMEOUT"),
			Stream:        v.GetString("NOTIFICATION_STREAM"),
			ConsumerGroup: v.GetString("NOTIFICATION_CONSUMER_GROUP"),
			SMTPHost:      v.GetString("SMTP_HOST"),
			SMTPPort:      v.GetInt("SMTP_PORT"),
			SMTPUsername:  v.GetString("SMTP_USERNAME"),
			SMTPPassword:  v.GetString("SMTP_PASSWORD"),
			FromAddress:   v.GetString("SMTP_FROM"),
			SupportEmail:  v.GetString("NOTIFICATION_SUPPORT_EMAIL"),
		},
		Health: HealthConfig{
			Timeout: v.GetString("HEALTH_CHECK_TIMEOUT"),
		},
	}, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case StoreDriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}

	if c.Business.MinAge <= 0 || c.Business.MaxAge < c.Business.MinAge {
		return fmt.Errorf("BUSINESS_MIN_AGE and BUSINESS_MAX_AGE must form a valid range")
	}

	decimals := map[string]string{
		"BUSINESS_MIN_LOAN_AMOUNT":      c.Business.MinLoanAmount,
		"BUSINESS_MAX_LOAN_AMOUNT":      c.Business.MaxLoanAmount,
		"BUSINESS_INCOME_MULTIPLIER":    c.Business.IncomeMultiplier,
		"BUSINESS_MAX_EMI_INCOME_RATIO": c.Business.MaxEMIIncomeRatio,
		"BUSINESS_PENALTY_AMOUNT":       c.Business.PenaltyAmount,
	}
	for key, value := range decimals {
		if _, err := decimal.NewFromString(value); err != nil {
			return fmt.Errorf("%s must be a valid decimal: %w", key, err)
		}
	}

	if len(c.Business.AllowedPlanTenures) == 0 {
		return fmt.Errorf("BUSINESS_ALLOWED_PLAN_TENURES must not be empty")
	}

	durations := map[string]string{
		"DATABASE_CONN_MAX_LIFETIME": c.Database.ConnMaxLifetime,
		"REDIS_LOCK_TTL":             c.Redis.LockTTL,
		"NOTIFICATION_TIMEOUT":       c.Notification.Timeout,
		"HEALTH_CHECK_TIMEOUT":       c.Health.Timeout,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", key, err)
		}
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	switch c.Notification.Mode {
	case NotifierModeLog, NotifierModeQueue:
	case NotifierModeSMTP:
		if c.Notification.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when NOTIFICATION_MODE is smtp")
		}
	default:
		return fmt.Errorf("NOTIFICATION_MODE must be one of log, queue, smtp")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) GetMinLoanAmount() decimal.Decimal {
	return decimal.RequireFromString(c.Business.MinLoanAmount)
}

func (c *Config) GetMaxLoanAmount() decimal.Decimal {
	return decimal.RequireFromString(c.Business.MaxLoanAmount)
}

func (c *Config) GetIncomeMultiplier() decimal.Decimal {
	return decimal.RequireFromString(c.Business.IncomeMultiplier)
}

func (c *Config) GetMaxEMIIncomeRatio() decimal.Decimal {
	return decimal.RequireFromString(c.Business.MaxEMIIncomeRatio)
}

func (c *Config) GetPenaltyAmount() decimal.Decimal {
	return decimal.RequireFromString(c.Business.PenaltyAmount)
}

func (c *Config) GetConnMaxLifetime() time.Duration {
	d, _ := time.ParseDuration(c.Database.ConnMaxLifetime)
	return d
}

func (c *Config) GetLockTTL() time.Duration {
	d, _ := time.ParseDuration(c.Redis.LockTTL)
	return d
}

func (c *Config) GetNotificationTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Notification.Timeout)
	return d
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}

// GetSchedulerLocation returns the scheduler timezone
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		var n int
		if _, err := fmt.Sscanf(part, "%d", &n); err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		if n <= 0 {
			return nil, fmt.Errorf("value must be positive, got %d", n)
		}
		out = append(out, n)
	}
	return out, nil
}
