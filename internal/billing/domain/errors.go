package domain

import (
	"errors"
	"fmt"

	sharedDomain "github.com/felixgeelhaar/billcycle/internal/shared/domain"
)

var (
	// ErrInvalidTransition is returned when a status change violates the
	// subscription state machine.
	ErrInvalidTransition = errors.New("invalid subscription transition")

	// ErrDuplicateActiveSubscription is returned when a user already holds an
	// active subscription.
	ErrDuplicateActiveSubscription = errors.New("user already has an active subscription")

	// ErrDuplicateInvoice is returned when a cycle is already invoiced.
	ErrDuplicateInvoice = errors.New("billing cycle already invoiced")

	// ErrPartialSweepFailure marks a sweep in which some subscriptions failed.
	ErrPartialSweepFailure = errors.New("billing sweep partially failed")

	// ErrPersistence is the store failure shared by every repository.
	ErrPersistence = sharedDomain.ErrPersistence

	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrInvoiceNotFound      = errors.New("invoice not found")

	ErrUnknownPlan       = errors.New("unknown plan")
	ErrInvalidPrice      = errors.New("plan price must be a non-negative whole amount")
	ErrPlanMissing       = errors.New("plan is required to generate an invoice")
	ErrPlanMismatch      = errors.New("plan does not match subscription")
	ErrInvoiceNotPayable = errors.New("invoice cannot change status")
	ErrInvalidCycle      = errors.New("billing cycle must be at least one day")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	From   SubscriptionStatus
	To     SubscriptionStatus
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s -> %s: %s", ErrInvalidTransition, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
