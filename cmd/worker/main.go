package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // zoneinfo for minimal images

	"github.com/felixgeelhaar/billcycle/internal/app"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/billcycle/pkg/config"
	"github.com/felixgeelhaar/billcycle/pkg/observability"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:          cfg.LogLevel,
		Format:         observability.LogFormat(cfg.LogFormat),
		Output:         os.Stdout,
		ServiceName:    "billcycle-worker",
		ServiceVersion: version,
	})
	logger.Info("starting billcycle worker")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close()

	scheduler, err := container.NewScheduler()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("billing sweep scheduled",
			"task", cfg.SweepTask,
			"cadence", cfg.SweepCadence,
			"timezone", cfg.BillingTimezone,
			"commit", cfg.SweepCommit,
		)
		return scheduler.Run(gctx)
	})

	if cfg.OutboxProcessorEnabled {
		processor := container.OutboxProcessor
		g.Go(func() error {
			logger.Info("starting outbox processor",
				"poll_interval", cfg.OutboxPollInterval,
				"batch_size", cfg.OutboxBatchSize,
				"max_retries", cfg.OutboxMaxRetries,
			)
			return processor.Run(gctx)
		})
		g.Go(func() error {
			logStats(gctx, logger, processor, cfg.OutboxStatsInterval)
			return nil
		})
	} else {
		logger.Info("outbox processor disabled")
	}

	if cfg.WorkerAdminAddr != "" {
		srv := &http.Server{
			Addr:              cfg.WorkerAdminAddr,
			Handler:           adminMux(container),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("admin server starting", "addr", cfg.WorkerAdminAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("worker stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func adminMux(c *app.Container) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/healthz", observability.LivenessHandler())
	mux.Handle("/readyz", c.Health.ReadinessHandler())
	mux.Handle("/metrics", c.Metrics.Handler())
	return mux
}

func logStats(ctx context.Context, logger *slog.Logger, processor *outbox.Processor, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := processor.GetStats()
			logger.Info("outbox stats",
				"running", stats.IsRunning,
				"published", stats.PublishedCount,
				"failed", stats.FailedCount,
				"dead", stats.DeadCount,
				"lag_seconds", stats.LagSeconds,
				"last_error", stats.LastError,
			)
		}
	}
}
