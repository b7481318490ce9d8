package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repositories return (nil, nil) when a row does not exist.

// PlanRepository persists catalog plans.
type PlanRepository interface {
	Save(ctx context.Context, plan *Plan) error
	FindByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	FindByName(ctx context.Context, name PlanName) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)
	// Delete removes the plan with its subscriptions and their invoices.
	Delete(ctx context.Context, id uuid.UUID) error
}

// SubscriptionRepository persists subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, sub *Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	FindLatestByUser(ctx context.Context, userID uuid.UUID, status SubscriptionStatus) (*Subscription, error)
	// FindActiveDue lists active subscriptions whose end date is on or
	// before asOf, oldest end date first.
	FindActiveDue(ctx context.Context, asOf Date) ([]*Subscription, error)
	// LockActiveDue re-reads one subscription under a row lock inside the
	// current transaction. It returns nil when the row is locked elsewhere
	// or no longer active and due.
	LockActiveDue(ctx context.Context, id uuid.UUID, asOf Date) (*Subscription, error)
}

// InvoiceRepository persists invoices.
type InvoiceRepository interface {
	Save(ctx context.Context, inv *Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindLatestBySubscription(ctx context.Context, subscriptionID uuid.UUID) (*Invoice, error)
	FindOpenBySubscription(ctx context.Context, subscriptionID uuid.UUID) (*Invoice, error)
	CountBySubscription(ctx context.Context, subscriptionID uuid.UUID) (int, error)
}
