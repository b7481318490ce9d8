package cli

import (
	billingCommands "github.com/felixgeelhaar/billcycle/internal/billing/application/commands"
	billingQueries "github.com/felixgeelhaar/billcycle/internal/billing/application/queries"
	"github.com/felixgeelhaar/billcycle/internal/billing/application/sweep"
	"github.com/felixgeelhaar/billcycle/internal/identity/application/auth"
)

// App holds the CLI application dependencies.
type App struct {
	// Billing Command Handlers
	SeedPlansHandler     *billingCommands.SeedPlansHandler
	SubscribeHandler     *billingCommands.SubscribeHandler
	UnsubscribeHandler   *billingCommands.UnsubscribeHandler
	RecordPaymentHandler *billingCommands.RecordPaymentHandler

	// Billing Query Handlers
	GetSubscriptionInvoiceHandler *billingQueries.GetSubscriptionInvoiceHandler
	ListPlansHandler              *billingQueries.ListPlansHandler

	// Sweep
	Sweeper *sweep.Sweeper

	// Identity Handlers. The reset handlers are nil when no token store is
	// configured.
	SignupHandler         *auth.SignupHandler
	AuthenticateHandler   *auth.AuthenticateHandler
	ForgotPasswordHandler *auth.ForgotPasswordHandler
	ResetPasswordHandler  *auth.ResetPasswordHandler
}

// NewApp creates a new CLI application with the provided handlers.
func NewApp(
	seedPlansHandler *billingCommands.SeedPlansHandler,
	subscribeHandler *billingCommands.SubscribeHandler,
	unsubscribeHandler *billingCommands.UnsubscribeHandler,
	recordPaymentHandler *billingCommands.RecordPaymentHandler,
	getSubscriptionInvoiceHandler *billingQueries.GetSubscriptionInvoiceHandler,
	listPlansHandler *billingQueries.ListPlansHandler,
	sweeper *sweep.Sweeper,
	signupHandler *auth.SignupHandler,
	authenticateHandler *auth.AuthenticateHandler,
) *App {
	return &App{
		SeedPlansHandler:              seedPlansHandler,
		SubscribeHandler:              subscribeHandler,
		UnsubscribeHandler:            unsubscribeHandler,
		RecordPaymentHandler:          recordPaymentHandler,
		GetSubscriptionInvoiceHandler: getSubscriptionInvoiceHandler,
		ListPlansHandler:              listPlansHandler,
		Sweeper:                       sweeper,
		SignupHandler:                 signupHandler,
		AuthenticateHandler:           authenticateHandler,
	}
}

// SetPasswordResetHandlers wires the password reset flow.
func (a *App) SetPasswordResetHandlers(forgot *auth.ForgotPasswordHandler, reset *auth.ResetPasswordHandler) {
	a.ForgotPasswordHandler = forgot
	a.ResetPasswordHandler = reset
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
