// Package sweep expires due subscriptions and invoices them.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	sharedApplication "github.com/felixgeelhaar/billcycle/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/billcycle/internal/shared/domain"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/billcycle/pkg/observability"
	"github.com/google/uuid"
)

// CommitMode selects how a sweep groups its writes.
type CommitMode string

const (
	// CommitPerSweep commits the whole sweep in one transaction with a
	// savepoint per subscription.
	CommitPerSweep CommitMode = "per_sweep"
	// CommitPerSubscription commits every subscription on its own.
	CommitPerSubscription CommitMode = "per_subscription"
)

// Config tunes a Sweeper.
type Config struct {
	TaskName    string
	CommitMode  CommitMode
	DBTimeout   time.Duration
	MaxDuration time.Duration
	LockTTL     time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TaskName:    "billing-invoice-sweep",
		CommitMode:  CommitPerSweep,
		DBTimeout:   5 * time.Second,
		MaxDuration: 50 * time.Second,
		LockTTL:     2 * time.Minute,
	}
}

// Locker is a lease lock shared by all sweeper processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Repositories groups the stores a sweep writes to.
type Repositories struct {
	Plans         domain.PlanRepository
	Subscriptions domain.SubscriptionRepository
	Invoices      domain.InvoiceRepository
	Outbox        outbox.Repository
}

// SweepResult summarizes one sweep. Skipped counts rows that were no longer
// due when re-read, usually because a concurrent sweeper took them. Stopped is
// set when cancellation or the duration budget ended the sweep before every
// selected row was visited.
type SweepResult struct {
	TaskName string
	AsOf     domain.Date
	Selected int
	Expired  int
	Skipped  int
	Failed   int
	Stopped  bool
	Duration time.Duration
}

// Sweeper runs billing sweeps. At most one sweep runs per Sweeper at a time.
type Sweeper struct {
	repos     Repositories
	uow       sharedApplication.UnitOfWork
	lifecycle domain.Lifecycle
	generator domain.InvoiceGenerator
	config    Config
	locker    Locker
	metrics   observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
	running   atomic.Bool
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithLocker adds a distributed lock around each sweep.
func WithLocker(locker Locker) Option {
	return func(s *Sweeper) { s.locker = locker }
}

// WithMetrics records sweep metrics.
func WithMetrics(metrics observability.Metrics) Option {
	return func(s *Sweeper) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// NewSweeper creates a Sweeper.
func NewSweeper(
	repos Repositories,
	uow sharedApplication.UnitOfWork,
	lifecycle domain.Lifecycle,
	generator domain.InvoiceGenerator,
	config Config,
	opts ...Option,
) *Sweeper {
	defaults := DefaultConfig()
	if config.TaskName == "" {
		config.TaskName = defaults.TaskName
	}
	if config.CommitMode == "" {
		config.CommitMode = defaults.CommitMode
	}
	if config.DBTimeout <= 0 {
		config.DBTimeout = defaults.DBTimeout
	}
	if config.MaxDuration <= 0 {
		config.MaxDuration = defaults.MaxDuration
	}
	if config.LockTTL <= 0 {
		config.LockTTL = defaults.LockTTL
	}

	s := &Sweeper{
		repos:     repos,
		uow:       uow,
		lifecycle: lifecycle,
		generator: generator,
		config:    config,
		metrics:   observability.NoopMetrics{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar day in the business timezone.
func (s *Sweeper) Today() domain.Date {
	return domain.DateOf(s.now(), s.lifecycle.Location)
}

// IsRunning reports whether a sweep is in progress.
func (s *Sweeper) IsRunning() bool {
	return s.running.Load()
}

// Sweep expires every active subscription whose end date is on or before
// asOf and issues one invoice for each. Rows that fail are left active and
// reported through a *PartialSweepError. A store failure aborts the sweep;
// in per_sweep mode it rolls back every row of the run.
func (s *Sweeper) Sweep(ctx context.Context, asOf domain.Date) (*SweepResult, error) {
	log := s.logger.With("task", s.config.TaskName, "as_of", asOf.String())

	if !s.running.CompareAndSwap(false, true) {
		s.metrics.Counter(observability.MetricSweepSkipped, 1, observability.T("reason", "running"))
		log.Warn("billing sweep skipped, previous run still active")
		return nil, ErrSweepInProgress
	}
	defer s.running.Store(false)

	release, err := s.acquireLock(ctx, log)
	if err != nil {
		return nil, err
	}
	defer release()

	timer := observability.StartTimer(s.metrics, observability.MetricSweepDuration)
	result := &SweepResult{TaskName: s.config.TaskName, AsOf: asOf}

	budgetCtx, cancel := context.WithTimeout(ctx, s.config.MaxDuration)
	defer cancel()

	failures, err := s.run(budgetCtx, asOf, result, log)
	result.Duration = timer.Stop(err)
	s.record(result)

	attrs := []any{
		"selected", result.Selected,
		"expired", result.Expired,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration_ms", result.Duration.Milliseconds(),
	}
	if err != nil {
		log.Error("billing sweep aborted", append(attrs, "error", err)...)
		return result, err
	}
	if result.Stopped {
		log.Warn("billing sweep stopped early, remaining rows left for next run", attrs...)
	} else {
		log.Info("billing sweep finished", attrs...)
	}

	if len(failures) > 0 {
		return result, &PartialSweepError{Failures: failures}
	}
	return result, nil
}

func (s *Sweeper) acquireLock(ctx context.Context, log *slog.Logger) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	key := "sweep:" + s.config.TaskName
	lockCtx, cancel := context.WithTimeout(ctx, s.config.DBTimeout)
	defer cancel()

	token, ok, err := s.locker.TryLock(lockCtx, key, s.config.LockTTL)
	if err != nil {
		// Row locks still keep invoicing exactly-once without the lease.
		log.Warn("sweep lock unavailable, continuing without it", "error", err)
		return noop, nil
	}
	if !ok {
		s.metrics.Counter(observability.MetricSweepSkipped, 1, observability.T("reason", "locked"))
		log.Info("billing sweep skipped, lock held by another worker")
		return nil, ErrSweepInProgress
	}

	return func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.DBTimeout)
		defer cancel()
		if err := s.locker.Unlock(unlockCtx, key, token); err != nil {
			log.Warn("failed to release sweep lock", "error", err)
		}
	}, nil
}

func (s *Sweeper) run(ctx context.Context, asOf domain.Date, result *SweepResult, log *slog.Logger) ([]RowFailure, error) {
	selectCtx, cancel := context.WithTimeout(ctx, s.config.DBTimeout)
	due, err := s.repos.Subscriptions.FindActiveDue(selectCtx, asOf)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("select due subscriptions: %w", err)
	}
	result.Selected = len(due)
	if len(due) == 0 {
		return nil, nil
	}

	// Row work runs detached from ctx; ctx is only checked between rows so
	// cancellation never interrupts a subscription halfway.
	base := context.WithoutCancel(ctx)
	plans := make(map[uuid.UUID]*domain.Plan)

	if s.config.CommitMode == CommitPerSubscription {
		return s.processAll(ctx, base, due, asOf, plans, result, log)
	}

	outerCtx, err := s.uow.Begin(base)
	if err != nil {
		return nil, err
	}
	failures, err := s.processAll(ctx, outerCtx, due, asOf, plans, result, log)
	if err != nil {
		if rbErr := s.uow.Rollback(outerCtx); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		result.Expired = 0
		return nil, err
	}

	commitCtx, cancel := context.WithTimeout(outerCtx, s.config.DBTimeout)
	defer cancel()
	if err := s.uow.Commit(commitCtx); err != nil {
		_ = s.uow.Rollback(outerCtx)
		result.Expired = 0
		return nil, fmt.Errorf("commit sweep: %w", err)
	}
	return failures, nil
}

func (s *Sweeper) processAll(
	ctx, base context.Context,
	due []*domain.Subscription,
	asOf domain.Date,
	plans map[uuid.UUID]*domain.Plan,
	result *SweepResult,
	log *slog.Logger,
) ([]RowFailure, error) {
	var failures []RowFailure
	for _, sub := range due {
		if ctx.Err() != nil {
			result.Stopped = true
			break
		}

		expired, err := s.processOne(base, sub.ID(), asOf, plans)
		switch {
		case err == nil && expired:
			result.Expired++
		case err == nil:
			result.Skipped++
		case errors.Is(err, sharedDomain.ErrPersistence):
			return failures, fmt.Errorf("subscription %s: %w", sub.ID(), err)
		default:
			result.Failed++
			failures = append(failures, RowFailure{SubscriptionID: sub.ID(), Err: err})
			log.Error("failed to bill subscription", "subscription_id", sub.ID(), "user_id", sub.UserID(), "error", err)
		}
	}
	return failures, nil
}

// processOne expires and invoices one subscription in its own unit of work.
// It reports false when the row is no longer due.
func (s *Sweeper) processOne(base context.Context, id uuid.UUID, asOf domain.Date, plans map[uuid.UUID]*domain.Plan) (bool, error) {
	rowCtx, cancel := context.WithTimeout(base, s.config.DBTimeout)
	defer cancel()

	expired := false
	err := sharedApplication.WithUnitOfWork(rowCtx, s.uow, func(txCtx context.Context) error {
		sub, err := s.repos.Subscriptions.LockActiveDue(txCtx, id, asOf)
		if err != nil {
			return err
		}
		if sub == nil {
			return nil
		}

		plan, err := s.plan(txCtx, sub.PlanID(), plans)
		if err != nil {
			return err
		}

		now := s.now()
		if err := s.lifecycle.Transition(sub, domain.SubscriptionExpired, domain.TransitionContext{
			Today: asOf,
			Now:   now,
		}); err != nil {
			return err
		}
		inv, err := s.generator.Generate(sub, plan, asOf)
		if err != nil {
			return err
		}

		if err := s.repos.Subscriptions.Save(txCtx, sub); err != nil {
			return err
		}
		if err := s.repos.Invoices.Save(txCtx, inv); err != nil {
			return err
		}
		if err := s.appendEvents(txCtx, sub.UserID(), sub, inv); err != nil {
			return err
		}

		expired = true
		return nil
	})
	return expired && err == nil, err
}

func (s *Sweeper) plan(ctx context.Context, id uuid.UUID, cache map[uuid.UUID]*domain.Plan) (*domain.Plan, error) {
	if plan, ok := cache[id]; ok {
		return plan, nil
	}
	plan, err := s.repos.Plans.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlanNotFound, id)
	}
	cache[id] = plan
	return plan, nil
}

func (s *Sweeper) appendEvents(ctx context.Context, userID uuid.UUID, aggregates ...sharedDomain.AggregateRoot) error {
	var events []sharedDomain.DomainEvent
	for _, agg := range aggregates {
		events = append(events, agg.DomainEvents()...)
	}
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ctx, userID))

	msgs, err := outbox.MessagesFromEvents(events)
	if err != nil {
		return err
	}
	if err := s.repos.Outbox.SaveBatch(ctx, msgs); err != nil {
		return err
	}
	for _, agg := range aggregates {
		agg.ClearDomainEvents()
	}
	return nil
}

func (s *Sweeper) record(result *SweepResult) {
	task := observability.T("task", result.TaskName)
	s.metrics.Counter(observability.MetricSweepRuns, 1, task)
	s.metrics.Gauge(observability.MetricSweepSelected, float64(result.Selected), task)
	if result.Expired > 0 {
		s.metrics.Counter(observability.MetricSubscriptionsExpired, int64(result.Expired), task)
		s.metrics.Counter(observability.MetricInvoicesGenerated, int64(result.Expired), task)
	}
	if result.Failed > 0 {
		s.metrics.Counter(observability.MetricSweepFailures, int64(result.Failed), task)
	}
}
