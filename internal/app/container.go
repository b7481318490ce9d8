package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	billingCommands "github.com/felixgeelhaar/billcycle/internal/billing/application/commands"
	billingQueries "github.com/felixgeelhaar/billcycle/internal/billing/application/queries"
	"github.com/felixgeelhaar/billcycle/internal/billing/application/sweep"
	billingDomain "github.com/felixgeelhaar/billcycle/internal/billing/domain"
	"github.com/felixgeelhaar/billcycle/internal/billing/infrastructure/lock"
	"github.com/felixgeelhaar/billcycle/internal/identity/application/auth"
	identityDomain "github.com/felixgeelhaar/billcycle/internal/identity/domain"
	"github.com/felixgeelhaar/billcycle/internal/identity/infrastructure/resettoken"
	"github.com/felixgeelhaar/billcycle/internal/identity/infrastructure/security"
	sharedApplication "github.com/felixgeelhaar/billcycle/internal/shared/application"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/convert"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/database/postgres" // Register PostgreSQL drivers
	_ "github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/billcycle/pkg/config"
	"github.com/felixgeelhaar/billcycle/pkg/observability"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies.
type Container struct {
	Config   *config.Config
	Logger   *slog.Logger
	Location *time.Location

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis
	RedisClient *redis.Client

	// Observability
	Metrics *observability.PrometheusMetrics
	Health  *observability.HealthRegistry

	// Repositories
	PlanRepo         billingDomain.PlanRepository
	SubscriptionRepo billingDomain.SubscriptionRepository
	InvoiceRepo      billingDomain.InvoiceRepository
	UserRepo         identityDomain.UserRepository
	OutboxRepo       outbox.Repository

	// Unit of Work
	UnitOfWork sharedApplication.UnitOfWork

	// Publishers
	EventPublisher eventbus.Publisher

	// Billing rules
	Lifecycle billingDomain.Lifecycle
	Generator billingDomain.InvoiceGenerator

	// Billing Command Handlers
	SeedPlansHandler     *billingCommands.SeedPlansHandler
	SubscribeHandler     *billingCommands.SubscribeHandler
	UnsubscribeHandler   *billingCommands.UnsubscribeHandler
	RecordPaymentHandler *billingCommands.RecordPaymentHandler

	// Billing Query Handlers
	GetSubscriptionInvoiceHandler *billingQueries.GetSubscriptionInvoiceHandler
	ListPlansHandler              *billingQueries.ListPlansHandler

	// Billing sweep
	Sweeper *sweep.Sweeper

	// Identity Handlers. The password reset handlers are nil without Redis.
	SignupHandler         *auth.SignupHandler
	AuthenticateHandler   *auth.AuthenticateHandler
	ForgotPasswordHandler *auth.ForgotPasswordHandler
	ResetPasswordHandler  *auth.ResetPasswordHandler

	// Outbox Processor
	OutboxProcessor *outbox.Processor
}

// NewContainer creates and wires all dependencies. It migrates the schema and
// seeds the plan catalog.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid billing timezone: %w", err)
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Location: loc,
		Metrics:  observability.NewPrometheusMetrics(),
		Health:   observability.NewHealthRegistry(2 * time.Second),
	}

	conn, err := database.NewConnection(ctx, database.Config{
		Driver:           database.Driver(cfg.DatabaseDriver),
		URL:              cfg.DatabaseURL,
		SQLitePath:       cfg.SQLitePath,
		MaxConns:         cfg.DatabaseMaxConns,
		StatementTimeout: cfg.DBTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	logger.Info("connected to database", "driver", c.DBDriver)

	if err := migrations.Run(ctx, conn); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := c.connectRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.connectPublisher(); err != nil {
		c.Close()
		return nil, err
	}

	factory := NewRepositoryFactory(conn)
	c.PlanRepo = factory.PlanRepository()
	c.SubscriptionRepo = factory.SubscriptionRepository()
	c.InvoiceRepo = factory.InvoiceRepository()
	c.UserRepo = factory.UserRepository()
	c.OutboxRepo = factory.OutboxRepository()
	c.UnitOfWork = factory.UnitOfWork()

	c.Lifecycle = billingDomain.NewLifecycle(cfg.CycleDays, loc)
	c.Generator = billingDomain.NewInvoiceGenerator(cfg.GracePeriodDays)

	c.wireBilling()
	if err := c.wireIdentity(); err != nil {
		c.Close()
		return nil, err
	}
	c.registerHealthChecks()

	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, outbox.ProcessorConfig{
		PollInterval:     cfg.OutboxPollInterval,
		BatchSize:        cfg.OutboxBatchSize,
		MaxRetries:       cfg.OutboxMaxRetries,
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  time.Minute,
		RetentionDays:    cfg.OutboxRetentionDays,
		CleanupInterval:  cfg.OutboxCleanupInterval,
	}, logger).WithMetrics(c.Metrics)

	if _, err := c.SeedPlansHandler.Handle(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to seed plans: %w", err)
	}

	return c, nil
}

func (c *Container) connectRedis(ctx context.Context) error {
	if c.Config.RedisURL == "" {
		return nil
	}
	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		c.Logger.Warn("invalid Redis URL, sweep lock and password resets disabled", "error", err)
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, sweep lock and password resets disabled", "error", err)
		return nil
	}
	c.RedisClient = client
	c.Logger.Info("connected to Redis")
	return nil
}

func (c *Container) connectPublisher() error {
	if c.Config.RabbitMQURL == "" {
		c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
		return nil
	}

	publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		// Fall back to noop publisher in development
		if c.Config.IsDevelopment() {
			c.Logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
			c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
			return nil
		}
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	c.EventPublisher = eventbus.NewBreakerPublisher(publisher, eventbus.DefaultBreakerConfig(), c.Logger)
	c.Health.Register("rabbitmq", observability.PingChecker("rabbitmq", observability.HealthStatusDegraded, publisher.Ping))
	return nil
}

func (c *Container) wireBilling() {
	c.SeedPlansHandler = billingCommands.NewSeedPlansHandler(c.PlanRepo, c.UnitOfWork, c.Logger)
	c.SubscribeHandler = billingCommands.NewSubscribeHandler(c.PlanRepo, c.SubscriptionRepo, c.OutboxRepo, c.UnitOfWork, c.Lifecycle)
	c.UnsubscribeHandler = billingCommands.NewUnsubscribeHandler(c.SubscriptionRepo, c.OutboxRepo, c.UnitOfWork, c.Lifecycle)
	c.RecordPaymentHandler = billingCommands.NewRecordPaymentHandler(c.SubscriptionRepo, c.InvoiceRepo, c.OutboxRepo, c.UnitOfWork, c.Lifecycle, c.Metrics)

	c.GetSubscriptionInvoiceHandler = billingQueries.NewGetSubscriptionInvoiceHandler(c.SubscriptionRepo, c.PlanRepo, c.InvoiceRepo)
	c.ListPlansHandler = billingQueries.NewListPlansHandler(c.PlanRepo)

	opts := []sweep.Option{
		sweep.WithMetrics(c.Metrics),
		sweep.WithLogger(c.Logger),
	}
	if c.RedisClient != nil {
		opts = append(opts, sweep.WithLocker(lock.NewRedisLocker(c.RedisClient)))
	}
	c.Sweeper = sweep.NewSweeper(
		sweep.Repositories{
			Plans:         c.PlanRepo,
			Subscriptions: c.SubscriptionRepo,
			Invoices:      c.InvoiceRepo,
			Outbox:        c.OutboxRepo,
		},
		c.UnitOfWork,
		c.Lifecycle,
		c.Generator,
		c.SweepConfig(),
		opts...,
	)
}

func (c *Container) wireIdentity() error {
	params, err := argon2Params(c.Config)
	if err != nil {
		return err
	}
	hasher := security.NewArgon2Hasher(params)

	c.SignupHandler = auth.NewSignupHandler(c.UserRepo, c.OutboxRepo, c.UnitOfWork, hasher)
	c.AuthenticateHandler = auth.NewAuthenticateHandler(c.UserRepo, hasher)

	if c.RedisClient != nil {
		store := resettoken.NewRedisStore(c.RedisClient)
		c.ForgotPasswordHandler = auth.NewForgotPasswordHandler(c.UserRepo, store, c.Config.PasswordResetTTL)
		c.ResetPasswordHandler = auth.NewResetPasswordHandler(c.UserRepo, c.OutboxRepo, c.UnitOfWork, store, hasher)
	}
	return nil
}

func argon2Params(cfg *config.Config) (security.Argon2Params, error) {
	memory, err := convert.IntToUint32(cfg.Argon2MemoryKB)
	if err != nil {
		return security.Argon2Params{}, fmt.Errorf("invalid ARGON2_MEMORY_KB: %w", err)
	}
	iterations, err := convert.IntToUint32(cfg.Argon2Iterations)
	if err != nil {
		return security.Argon2Params{}, fmt.Errorf("invalid ARGON2_ITERATIONS: %w", err)
	}
	parallelism, err := convert.IntToUint8(cfg.Argon2Parallelism)
	if err != nil {
		return security.Argon2Params{}, fmt.Errorf("invalid ARGON2_PARALLELISM: %w", err)
	}
	return security.Argon2Params{MemoryKB: memory, Iterations: iterations, Parallelism: parallelism}, nil
}

func (c *Container) registerHealthChecks() {
	c.Health.Register("database", observability.PingChecker("database", observability.HealthStatusUnhealthy, c.DBConn.Ping))
	if c.RedisClient != nil {
		c.Health.Register("redis", observability.PingChecker("redis", observability.HealthStatusDegraded, func(ctx context.Context) error {
			return c.RedisClient.Ping(ctx).Err()
		}))
	}
}

// SweepConfig returns the sweep settings from configuration.
func (c *Container) SweepConfig() sweep.Config {
	return sweep.Config{
		TaskName:    c.Config.SweepTask,
		CommitMode:  sweep.CommitMode(c.Config.SweepCommit),
		DBTimeout:   c.Config.DBTimeout,
		MaxDuration: c.Config.SweepMaxDuration,
		LockTTL:     c.Config.SweepLockTTL,
	}
}

// NewScheduler registers the billing sweep on the configured cadence.
func (c *Container) NewScheduler() (*sweep.Scheduler, error) {
	return sweep.NewScheduler(c.Sweeper, sweep.ScheduleConfig{
		TaskName: c.Config.SweepTask,
		Cadence:  c.Config.SweepCadence,
		Timezone: c.Location,
	}, c.Logger)
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver)
		}
	}
}
