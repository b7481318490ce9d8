package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	sharedApplication "github.com/felixgeelhaar/billcycle/internal/shared/application"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/billcycle/pkg/observability"
	"github.com/google/uuid"
)

// PaymentStatus is the outcome reported for a payment attempt.
type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentPending PaymentStatus = "PENDING"
	PaymentFailed  PaymentStatus = "FAILED"
)

// ErrUnknownPaymentStatus is returned for a status other than SUCCESS,
// PENDING or FAILED.
var ErrUnknownPaymentStatus = errors.New("unknown payment status")

// ParsePaymentStatus parses a status case-insensitively.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch status := PaymentStatus(strings.ToUpper(strings.TrimSpace(s))); status {
	case PaymentSuccess, PaymentPending, PaymentFailed:
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentStatus, s)
}

// RecordPaymentCommand reports the payment of the user's open invoice.
type RecordPaymentCommand struct {
	UserID uuid.UUID
	Status PaymentStatus
}

// RecordPaymentResult is the state after the payment was applied.
type RecordPaymentResult struct {
	SubscriptionID     uuid.UUID
	SubscriptionStatus domain.SubscriptionStatus
	EndDate            domain.Date
	InvoiceID          uuid.UUID
	InvoiceStatus      domain.InvoiceStatus
}

// RecordPaymentHandler applies a payment outcome to the open invoice of the
// user's expired subscription. Only a successful payment reactivates the
// subscription; a pending one marks the invoice overdue.
type RecordPaymentHandler struct {
	subRepo     domain.SubscriptionRepository
	invoiceRepo domain.InvoiceRepository
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	lifecycle   domain.Lifecycle
	metrics     observability.Metrics
	now         func() time.Time
}

// NewRecordPaymentHandler creates a new RecordPaymentHandler.
func NewRecordPaymentHandler(
	subRepo domain.SubscriptionRepository,
	invoiceRepo domain.InvoiceRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	lifecycle domain.Lifecycle,
	metrics observability.Metrics,
) *RecordPaymentHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &RecordPaymentHandler{
		subRepo:     subRepo,
		invoiceRepo: invoiceRepo,
		outboxRepo:  outboxRepo,
		uow:         uow,
		lifecycle:   lifecycle,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Handle executes RecordPaymentCommand.
func (h *RecordPaymentHandler) Handle(ctx context.Context, cmd RecordPaymentCommand) (*RecordPaymentResult, error) {
	if _, err := ParsePaymentStatus(string(cmd.Status)); err != nil {
		return nil, err
	}

	var result *RecordPaymentResult
	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		sub, err := h.subRepo.FindLatestByUser(txCtx, cmd.UserID, domain.SubscriptionExpired)
		if err != nil {
			return err
		}
		if sub == nil {
			return domain.ErrSubscriptionNotFound
		}

		inv, err := h.invoiceRepo.FindOpenBySubscription(txCtx, sub.ID())
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrInvoiceNotFound
		}

		now := h.now()
		today := domain.DateOf(now, h.lifecycle.Location)

		switch cmd.Status {
		case PaymentSuccess:
			if err := inv.MarkPaid(today, now); err != nil {
				return err
			}
			if err := h.lifecycle.Transition(sub, domain.SubscriptionActive, domain.TransitionContext{
				Today:       today,
				Now:         now,
				PaidInvoice: inv,
			}); err != nil {
				return err
			}
		case PaymentPending:
			if err := inv.MarkOverdue(now); err != nil {
				return err
			}
		case PaymentFailed:
		}

		if err := h.invoiceRepo.Save(txCtx, inv); err != nil {
			return err
		}
		if err := h.subRepo.Save(txCtx, sub); err != nil {
			return err
		}
		if err := publishEvents(txCtx, h.outboxRepo, cmd.UserID, inv, sub); err != nil {
			return err
		}

		result = &RecordPaymentResult{
			SubscriptionID:     sub.ID(),
			SubscriptionStatus: sub.Status(),
			EndDate:            sub.EndDate(),
			InvoiceID:          inv.ID(),
			InvoiceStatus:      inv.Status(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.metrics.Counter(observability.MetricPaymentsRecorded, 1, observability.T("status", strings.ToLower(string(cmd.Status))))
	return result, nil
}
