// Package config loads billcycle configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Sweep commit modes.
const (
	SweepCommitPerSweep        = "per_sweep"
	SweepCommitPerSubscription = "per_subscription"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string

	// Database
	DatabaseURL      string
	DatabaseDriver   string
	SQLitePath       string
	DatabaseMaxConns int

	// Redis is optional. Without it the sweep lock is process-local and
	// password reset tokens are unavailable.
	RedisURL string

	// RabbitMQ is optional. Without it outbox messages stay unpublished.
	RabbitMQURL string

	// Outbox
	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	OutboxMaxRetries       int
	OutboxStatsInterval    time.Duration
	OutboxRetentionDays    int
	OutboxCleanupInterval  time.Duration
	OutboxProcessorEnabled bool

	// Worker
	WorkerAdminAddr string

	// Billing
	BillingTimezone  string
	SweepCadence     string
	SweepTask        string
	SweepMaxDuration time.Duration
	SweepLockTTL     time.Duration
	SweepCommit      string
	DBTimeout        time.Duration
	GracePeriodDays  int
	CycleDays        int

	// Credentials
	Argon2MemoryKB    int
	Argon2Iterations  int
	Argon2Parallelism int
	PasswordResetTTL  time.Duration
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DatabaseDriver:   getEnv("DATABASE_DRIVER", "auto"),
		SQLitePath:       getEnv("SQLITE_PATH", ""),
		DatabaseMaxConns: getIntEnv("DATABASE_MAX_CONNS", 10),

		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		OutboxPollInterval:     getDurationEnv("OUTBOX_POLL_INTERVAL", time.Second),
		OutboxBatchSize:        getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:       getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxStatsInterval:    getDurationEnv("OUTBOX_STATS_INTERVAL", 30*time.Second),
		OutboxRetentionDays:    getIntEnv("OUTBOX_RETENTION_DAYS", 14),
		OutboxCleanupInterval:  getDurationEnv("OUTBOX_CLEANUP_INTERVAL", 24*time.Hour),
		OutboxProcessorEnabled: getBoolEnv("OUTBOX_PROCESSOR_ENABLED", true),

		WorkerAdminAddr: getEnv("WORKER_ADMIN_ADDR", "0.0.0.0:8081"),

		BillingTimezone:  getEnv("BILLING_TIMEZONE", "Asia/Kolkata"),
		SweepCadence:     getEnv("BILLING_SWEEP_CADENCE", "@every 1m"),
		SweepTask:        getEnv("BILLING_SWEEP_TASK", "billing-invoice-sweep"),
		SweepMaxDuration: getDurationEnv("BILLING_SWEEP_MAX_DURATION", 50*time.Second),
		SweepLockTTL:     getDurationEnv("BILLING_SWEEP_LOCK_TTL", 2*time.Minute),
		SweepCommit:      getEnv("BILLING_SWEEP_COMMIT", SweepCommitPerSweep),
		DBTimeout:        getDurationEnv("BILLING_DB_TIMEOUT", 5*time.Second),
		GracePeriodDays:  getIntEnv("BILLING_GRACE_PERIOD_DAYS", 7),
		CycleDays:        getIntEnv("BILLING_CYCLE_DAYS", 30),

		Argon2MemoryKB:    getIntEnv("ARGON2_MEMORY_KB", 64*1024),
		Argon2Iterations:  getIntEnv("ARGON2_ITERATIONS", 4),
		Argon2Parallelism: getIntEnv("ARGON2_PARALLELISM", 2),
		PasswordResetTTL:  getDurationEnv("PASSWORD_RESET_TTL", 15*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the billing core cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("BILLING_TIMEZONE: %w", err))
	}
	if c.CycleDays <= 0 {
		errs = append(errs, fmt.Errorf("BILLING_CYCLE_DAYS must be positive, got %d", c.CycleDays))
	}
	if c.GracePeriodDays <= 0 {
		errs = append(errs, fmt.Errorf("BILLING_GRACE_PERIOD_DAYS must be positive, got %d", c.GracePeriodDays))
	}
	if c.DBTimeout <= 0 {
		errs = append(errs, errors.New("BILLING_DB_TIMEOUT must be positive"))
	}
	if c.SweepMaxDuration <= 0 {
		errs = append(errs, errors.New("BILLING_SWEEP_MAX_DURATION must be positive"))
	}
	switch c.SweepCommit {
	case SweepCommitPerSweep, SweepCommitPerSubscription:
	default:
		errs = append(errs, fmt.Errorf("BILLING_SWEEP_COMMIT must be %s or %s, got %q",
			SweepCommitPerSweep, SweepCommitPerSubscription, c.SweepCommit))
	}
	if c.Argon2Iterations <= 0 || c.Argon2MemoryKB <= 0 || c.Argon2Parallelism <= 0 || c.Argon2Parallelism > 255 {
		errs = append(errs, errors.New("ARGON2_* parameters must be positive and parallelism at most 255"))
	}
	return errors.Join(errs...)
}

// Location resolves the billing timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.BillingTimezone)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
