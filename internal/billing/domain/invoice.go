package domain

import (
	"fmt"
	"time"

	sharedDomain "github.com/felixgeelhaar/billcycle/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceUnpaid  InvoiceStatus = "unpaid"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

func (s InvoiceStatus) String() string { return string(s) }

// IsOpen reports whether the invoice still awaits payment.
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceUnpaid || s == InvoiceOverdue
}

// Invoice bills one expired cycle of a subscription.
type Invoice struct {
	sharedDomain.BaseAggregateRoot
	userID         uuid.UUID
	subscriptionID *uuid.UUID
	amount         decimal.Decimal
	issueDate      Date
	dueDate        Date
	periodEnd      Date
	status         InvoiceStatus
}

// RehydrateInvoice recreates an invoice from persisted state.
func RehydrateInvoice(
	id, userID uuid.UUID,
	subscriptionID *uuid.UUID,
	amount decimal.Decimal,
	issueDate, dueDate, periodEnd Date,
	status InvoiceStatus,
	createdAt, updatedAt time.Time,
) *Invoice {
	return &Invoice{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		userID:         userID,
		subscriptionID: subscriptionID,
		amount:         amount,
		issueDate:      issueDate,
		dueDate:        dueDate,
		periodEnd:      periodEnd,
		status:         status,
	}
}

func (i *Invoice) UserID() uuid.UUID          { return i.userID }
func (i *Invoice) SubscriptionID() *uuid.UUID { return i.subscriptionID }
func (i *Invoice) Amount() decimal.Decimal    { return i.amount }
func (i *Invoice) IssueDate() Date            { return i.issueDate }
func (i *Invoice) DueDate() Date              { return i.dueDate }
func (i *Invoice) Status() InvoiceStatus      { return i.status }

// PeriodEnd is the end date of the cycle this invoice bills. Together with
// the subscription it identifies the cycle.
func (i *Invoice) PeriodEnd() Date { return i.periodEnd }

// BelongsTo reports whether the invoice was generated for sub.
func (i *Invoice) BelongsTo(sub *Subscription) bool {
	return sub != nil && i.subscriptionID != nil && *i.subscriptionID == sub.ID()
}

// MarkPaid settles the invoice. The issue date moves to the payment day.
func (i *Invoice) MarkPaid(today Date, now time.Time) error {
	if !i.status.IsOpen() {
		return fmt.Errorf("%w: %s -> %s", ErrInvoiceNotPayable, i.status, InvoicePaid)
	}
	i.status = InvoicePaid
	i.issueDate = today
	i.Touch(now)
	i.AddDomainEvent(NewInvoicePaidEvent(i))
	return nil
}

// MarkOverdue flags an unpaid invoice whose payment is pending. Marking an
// overdue invoice again is a no-op.
func (i *Invoice) MarkOverdue(now time.Time) error {
	switch i.status {
	case InvoiceOverdue:
		return nil
	case InvoiceUnpaid:
		i.status = InvoiceOverdue
		i.Touch(now)
		i.AddDomainEvent(NewInvoiceOverdueEvent(i))
		return nil
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvoiceNotPayable, i.status, InvoiceOverdue)
	}
}
