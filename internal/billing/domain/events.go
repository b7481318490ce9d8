package domain

import (
	sharedDomain "github.com/felixgeelhaar/billcycle/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SubscriptionAggregateType = "Subscription"
	InvoiceAggregateType      = "Invoice"

	RoutingKeySubscriptionCreated     = "billing.subscription.created"
	RoutingKeySubscriptionCancelled   = "billing.subscription.cancelled"
	RoutingKeySubscriptionExpired     = "billing.subscription.expired"
	RoutingKeySubscriptionReactivated = "billing.subscription.reactivated"
	RoutingKeyInvoiceGenerated        = "billing.invoice.generated"
	RoutingKeyInvoicePaid             = "billing.invoice.paid"
	RoutingKeyInvoiceOverdue          = "billing.invoice.overdue"
)

// SubscriptionCreatedEvent is emitted on subscribe.
type SubscriptionCreatedEvent struct {
	sharedDomain.BaseEvent
	UserID  uuid.UUID `json:"user_id"`
	PlanID  uuid.UUID `json:"plan_id"`
	Plan    PlanName  `json:"plan"`
	EndDate Date      `json:"end_date"`
}

func NewSubscriptionCreatedEvent(sub *Subscription, plan PlanName) *SubscriptionCreatedEvent {
	return &SubscriptionCreatedEvent{
		BaseEvent: sharedDomain.NewBaseEvent(sub.ID(), SubscriptionAggregateType, RoutingKeySubscriptionCreated, sub.StartAt()),
		UserID:    sub.UserID(),
		PlanID:    sub.PlanID(),
		Plan:      plan,
		EndDate:   sub.EndDate(),
	}
}

// SubscriptionCancelledEvent is emitted on unsubscribe.
type SubscriptionCancelledEvent struct {
	sharedDomain.BaseEvent
	UserID uuid.UUID `json:"user_id"`
}

func NewSubscriptionCancelledEvent(sub *Subscription) *SubscriptionCancelledEvent {
	return &SubscriptionCancelledEvent{
		BaseEvent: sharedDomain.NewBaseEvent(sub.ID(), SubscriptionAggregateType, RoutingKeySubscriptionCancelled, sub.UpdatedAt()),
		UserID:    sub.UserID(),
	}
}

// SubscriptionExpiredEvent is emitted by the sweep.
type SubscriptionExpiredEvent struct {
	sharedDomain.BaseEvent
	UserID    uuid.UUID `json:"user_id"`
	EndDate   Date      `json:"end_date"`
	ExpiredOn Date      `json:"expired_on"`
}

func NewSubscriptionExpiredEvent(sub *Subscription, today Date) *SubscriptionExpiredEvent {
	return &SubscriptionExpiredEvent{
		BaseEvent: sharedDomain.NewBaseEvent(sub.ID(), SubscriptionAggregateType, RoutingKeySubscriptionExpired, sub.UpdatedAt()),
		UserID:    sub.UserID(),
		EndDate:   sub.EndDate(),
		ExpiredOn: today,
	}
}

// SubscriptionReactivatedEvent is emitted when a paid invoice reopens a cycle.
type SubscriptionReactivatedEvent struct {
	sharedDomain.BaseEvent
	UserID    uuid.UUID `json:"user_id"`
	InvoiceID uuid.UUID `json:"invoice_id"`
	EndDate   Date      `json:"end_date"`
}

func NewSubscriptionReactivatedEvent(sub *Subscription, invoiceID uuid.UUID) *SubscriptionReactivatedEvent {
	return &SubscriptionReactivatedEvent{
		BaseEvent: sharedDomain.NewBaseEvent(sub.ID(), SubscriptionAggregateType, RoutingKeySubscriptionReactivated, sub.UpdatedAt()),
		UserID:    sub.UserID(),
		InvoiceID: invoiceID,
		EndDate:   sub.EndDate(),
	}
}

// InvoiceGeneratedEvent is emitted when a cycle is billed.
type InvoiceGeneratedEvent struct {
	sharedDomain.BaseEvent
	UserID         uuid.UUID       `json:"user_id"`
	SubscriptionID *uuid.UUID      `json:"subscription_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	IssueDate      Date            `json:"issue_date"`
	DueDate        Date            `json:"due_date"`
}

func NewInvoiceGeneratedEvent(inv *Invoice) *InvoiceGeneratedEvent {
	return &InvoiceGeneratedEvent{
		BaseEvent:      sharedDomain.NewBaseEvent(inv.ID(), InvoiceAggregateType, RoutingKeyInvoiceGenerated, inv.CreatedAt()),
		UserID:         inv.UserID(),
		SubscriptionID: inv.SubscriptionID(),
		Amount:         inv.Amount(),
		IssueDate:      inv.IssueDate(),
		DueDate:        inv.DueDate(),
	}
}

// InvoicePaidEvent is emitted on a successful payment.
type InvoicePaidEvent struct {
	sharedDomain.BaseEvent
	UserID uuid.UUID       `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	PaidOn Date            `json:"paid_on"`
}

func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseEvent: sharedDomain.NewBaseEvent(inv.ID(), InvoiceAggregateType, RoutingKeyInvoicePaid, inv.UpdatedAt()),
		UserID:    inv.UserID(),
		Amount:    inv.Amount(),
		PaidOn:    inv.IssueDate(),
	}
}

// InvoiceOverdueEvent is emitted when a payment is reported pending.
type InvoiceOverdueEvent struct {
	sharedDomain.BaseEvent
	UserID  uuid.UUID `json:"user_id"`
	DueDate Date      `json:"due_date"`
}

func NewInvoiceOverdueEvent(inv *Invoice) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseEvent: sharedDomain.NewBaseEvent(inv.ID(), InvoiceAggregateType, RoutingKeyInvoiceOverdue, inv.UpdatedAt()),
		UserID:    inv.UserID(),
		DueDate:   inv.DueDate(),
	}
}
