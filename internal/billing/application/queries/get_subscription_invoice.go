package queries

import (
	"context"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GetSubscriptionInvoiceQuery asks for a user's current subscription.
type GetSubscriptionInvoiceQuery struct {
	UserID uuid.UUID
}

// SubscriptionDTO is a read view of a subscription.
type SubscriptionDTO struct {
	ID      uuid.UUID
	Plan    domain.PlanName
	Price   decimal.Decimal
	Status  domain.SubscriptionStatus
	StartAt time.Time
	EndAt   time.Time
	EndDate domain.Date
}

// InvoiceDTO is a read view of an invoice.
type InvoiceDTO struct {
	ID        uuid.UUID
	Amount    decimal.Decimal
	IssueDate domain.Date
	DueDate   domain.Date
	Status    domain.InvoiceStatus
}

// SubscriptionInvoiceDTO pairs a subscription with its latest invoice, which
// is nil before the first expiry.
type SubscriptionInvoiceDTO struct {
	Subscription SubscriptionDTO
	Invoice      *InvoiceDTO
}

// GetSubscriptionInvoiceHandler returns the active subscription, or the most
// recent one when none is active, with its latest invoice.
type GetSubscriptionInvoiceHandler struct {
	subRepo     domain.SubscriptionRepository
	planRepo    domain.PlanRepository
	invoiceRepo domain.InvoiceRepository
}

// NewGetSubscriptionInvoiceHandler creates a new GetSubscriptionInvoiceHandler.
func NewGetSubscriptionInvoiceHandler(
	subRepo domain.SubscriptionRepository,
	planRepo domain.PlanRepository,
	invoiceRepo domain.InvoiceRepository,
) *GetSubscriptionInvoiceHandler {
	return &GetSubscriptionInvoiceHandler{
		subRepo:     subRepo,
		planRepo:    planRepo,
		invoiceRepo: invoiceRepo,
	}
}

// Handle executes the query. A user without any subscription gets
// domain.ErrNoActiveSubscription.
func (h *GetSubscriptionInvoiceHandler) Handle(ctx context.Context, query GetSubscriptionInvoiceQuery) (*SubscriptionInvoiceDTO, error) {
	sub, err := h.subRepo.FindActiveByUser(ctx, query.UserID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		sub, err = h.subRepo.FindLatestByUser(ctx, query.UserID, "")
		if err != nil {
			return nil, err
		}
	}
	if sub == nil {
		return nil, domain.ErrNoActiveSubscription
	}

	plan, err := h.planRepo.FindByID(ctx, sub.PlanID())
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}

	dto := &SubscriptionInvoiceDTO{
		Subscription: SubscriptionDTO{
			ID:      sub.ID(),
			Plan:    plan.Name(),
			Price:   plan.Price(),
			Status:  sub.Status(),
			StartAt: sub.StartAt(),
			EndAt:   sub.EndAt(),
			EndDate: sub.EndDate(),
		},
	}

	inv, err := h.invoiceRepo.FindLatestBySubscription(ctx, sub.ID())
	if err != nil {
		return nil, err
	}
	if inv != nil {
		dto.Invoice = &InvoiceDTO{
			ID:        inv.ID(),
			Amount:    inv.Amount(),
			IssueDate: inv.IssueDate(),
			DueDate:   inv.DueDate(),
			Status:    inv.Status(),
		}
	}
	return dto, nil
}
