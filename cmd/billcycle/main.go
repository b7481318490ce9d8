package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // zoneinfo for minimal images

	"github.com/felixgeelhaar/billcycle/adapter/cli"
	cliAuth "github.com/felixgeelhaar/billcycle/adapter/cli/auth"
	cliBilling "github.com/felixgeelhaar/billcycle/adapter/cli/billing"
	"github.com/felixgeelhaar/billcycle/internal/app"
	"github.com/felixgeelhaar/billcycle/pkg/config"
	"github.com/felixgeelhaar/billcycle/pkg/observability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:          cfg.LogLevel,
		Format:         observability.LogFormat(cfg.LogFormat),
		ServiceName:    "billcycle",
		ServiceVersion: cli.Version,
	})
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	cliApp := cli.NewApp(
		container.SeedPlansHandler,
		container.SubscribeHandler,
		container.UnsubscribeHandler,
		container.RecordPaymentHandler,
		container.GetSubscriptionInvoiceHandler,
		container.ListPlansHandler,
		container.Sweeper,
		container.SignupHandler,
		container.AuthenticateHandler,
	)
	cliApp.SetPasswordResetHandlers(container.ForgotPasswordHandler, container.ResetPasswordHandler)
	cli.SetApp(cliApp)

	cli.AddCommand(cliBilling.Cmd)
	cli.AddCommand(cliAuth.Cmd)

	if err := cli.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		container.Close()
		os.Exit(1)
	}
}
