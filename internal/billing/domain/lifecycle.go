package domain

import "time"

// TransitionContext carries what a status change may depend on.
type TransitionContext struct {
	// Today is the current calendar day in the business timezone.
	Today Date
	// Now stamps the change. Defaults to time.Now.
	Now time.Time
	// PaidInvoice is required to leave expired.
	PaidInvoice *Invoice
}

// Lifecycle enforces the subscription state machine:
//
//	active   -> expired    once today >= end date
//	active   -> cancelled  any time
//	expired  -> active     with a paid invoice of this subscription
type Lifecycle struct {
	CycleDays int
	Location  *time.Location
}

// NewLifecycle returns a lifecycle opening cycles of cycleDays in loc.
func NewLifecycle(cycleDays int, loc *time.Location) Lifecycle {
	if cycleDays < 1 {
		cycleDays = DefaultCycleDays
	}
	if loc == nil {
		loc = time.UTC
	}
	return Lifecycle{CycleDays: cycleDays, Location: loc}
}

// Transition moves sub to target or returns a *TransitionError leaving sub
// unchanged.
func (l Lifecycle) Transition(sub *Subscription, target SubscriptionStatus, tc TransitionContext) error {
	now := tc.Now
	if now.IsZero() {
		now = time.Now()
	}
	from := sub.Status()
	reject := func(reason string) error {
		return &TransitionError{From: from, To: target, Reason: reason}
	}

	switch {
	case from == SubscriptionActive && target == SubscriptionExpired:
		if tc.Today.IsZero() {
			return reject("today is required")
		}
		if tc.Today.Before(sub.EndDate()) {
			return reject("end date " + sub.EndDate().String() + " not reached")
		}
		sub.setStatus(SubscriptionExpired, now)
		sub.AddDomainEvent(NewSubscriptionExpiredEvent(sub, tc.Today))
		return nil

	case from == SubscriptionActive && target == SubscriptionCancelled:
		sub.setStatus(SubscriptionCancelled, now)
		sub.AddDomainEvent(NewSubscriptionCancelledEvent(sub))
		return nil

	case from == SubscriptionExpired && target == SubscriptionActive:
		inv := tc.PaidInvoice
		if inv == nil || !inv.BelongsTo(sub) {
			return reject("no invoice of this subscription supplied")
		}
		if inv.Status() != InvoicePaid {
			return reject("invoice is " + inv.Status().String())
		}
		cycle := l.CycleDays
		if cycle < 1 {
			cycle = DefaultCycleDays
		}
		sub.openCycle(now, cycle, l.Location)
		sub.setStatus(SubscriptionActive, now)
		sub.AddDomainEvent(NewSubscriptionReactivatedEvent(sub, inv.ID()))
		return nil
	}

	return reject("")
}
