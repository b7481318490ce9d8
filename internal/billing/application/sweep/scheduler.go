package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleConfig describes when a sweep runs. It is passed in at process
// start; nothing registers itself.
type ScheduleConfig struct {
	TaskName string
	// Cadence is a cron spec or descriptor such as "@every 1m".
	Cadence  string
	Timezone *time.Location
}

// Scheduler triggers sweeps on a cron cadence in the business timezone.
// Overlapping triggers are dropped.
type Scheduler struct {
	sweeper *Sweeper
	config  ScheduleConfig
	cron    *cron.Cron
	logger  *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler validates config and prepares the cron entry.
func NewScheduler(sweeper *Sweeper, config ScheduleConfig, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timezone == nil {
		config.Timezone = time.UTC
	}
	if config.TaskName == "" {
		config.TaskName = DefaultConfig().TaskName
	}

	cronLogger := cronLog{logger: logger.With("task", config.TaskName)}
	c := cron.New(
		cron.WithLocation(config.Timezone),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	s := &Scheduler{
		sweeper: sweeper,
		config:  config,
		cron:    c,
		logger:  logger,
		ctx:     context.Background(),
		cancel:  func() {},
	}
	if _, err := c.AddFunc(config.Cadence, s.tick); err != nil {
		return nil, fmt.Errorf("invalid sweep cadence %q: %w", config.Cadence, err)
	}
	return s, nil
}

// Start begins triggering sweeps. In-flight sweeps observe ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("billing scheduler started",
		"task", s.config.TaskName,
		"cadence", s.config.Cadence,
		"timezone", s.config.Timezone.String(),
	)
}

// Stop halts triggering and waits for a running sweep until ctx expires.
// The running sweep is told to stop taking new rows.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("billing scheduler stopped", "task", s.config.TaskName)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start(ctx)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sweeper.config.MaxDuration+s.sweeper.config.DBTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}

// Next returns the next trigger time.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	asOf := s.sweeper.Today()
	_, err := s.sweeper.Sweep(ctx, asOf)

	var partial *PartialSweepError
	switch {
	case err == nil, errors.Is(err, ErrSweepInProgress):
	case errors.As(err, &partial):
		s.logger.Warn("billing sweep left subscriptions for retry",
			"task", s.config.TaskName,
			"as_of", asOf.String(),
			"subscription_ids", partial.SubscriptionIDs(),
		)
	default:
		s.logger.Error("billing sweep failed, waiting for next tick",
			"task", s.config.TaskName,
			"as_of", asOf.String(),
			"error", err,
		)
	}
}

// cronLog adapts slog to cron.Logger.
type cronLog struct {
	logger *slog.Logger
}

func (l cronLog) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLog) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
