package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/billcycle/internal/shared/domain"
)

// DefaultGracePeriodDays is the time between issue and due date.
const DefaultGracePeriodDays = 7

// InvoiceGenerator builds the invoice for an expiring cycle. It does not
// detect repeated calls for the same cycle; the sweep guarantees that.
type InvoiceGenerator struct {
	GracePeriodDays int
	Now             func() time.Time
}

// NewInvoiceGenerator returns a generator with the given grace period.
func NewInvoiceGenerator(graceDays int) InvoiceGenerator {
	if graceDays < 1 {
		graceDays = DefaultGracePeriodDays
	}
	return InvoiceGenerator{GracePeriodDays: graceDays, Now: time.Now}
}

// Generate issues an unpaid invoice dated asOf for the plan price.
func (g InvoiceGenerator) Generate(sub *Subscription, plan *Plan, asOf Date) (*Invoice, error) {
	if plan == nil {
		return nil, ErrPlanMissing
	}
	if plan.ID() != sub.PlanID() {
		return nil, ErrPlanMismatch
	}
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	grace := g.GracePeriodDays
	if grace < 1 {
		grace = DefaultGracePeriodDays
	}

	subID := sub.ID()
	inv := &Invoice{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(now),
		userID:            sub.UserID(),
		subscriptionID:    &subID,
		amount:            plan.Price(),
		issueDate:         asOf,
		dueDate:           asOf.AddDays(grace),
		periodEnd:         sub.EndDate(),
		status:            InvoiceUnpaid,
	}
	inv.AddDomainEvent(NewInvoiceGeneratedEvent(inv))
	return inv, nil
}
