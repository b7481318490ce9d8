package commands

import (
	"context"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	sharedApplication "github.com/felixgeelhaar/billcycle/internal/shared/application"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// SubscribeCommand subscribes a user to a plan.
type SubscribeCommand struct {
	UserID   uuid.UUID
	PlanName string
}

// SubscribeResult describes the new subscription.
type SubscribeResult struct {
	SubscriptionID uuid.UUID
	Plan           domain.PlanName
	StartAt        time.Time
	EndDate        domain.Date
}

// SubscribeHandler handles SubscribeCommand.
type SubscribeHandler struct {
	planRepo   domain.PlanRepository
	subRepo    domain.SubscriptionRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	lifecycle  domain.Lifecycle
	now        func() time.Time
}

// NewSubscribeHandler creates a new SubscribeHandler. Cycles follow the
// length and timezone of lifecycle.
func NewSubscribeHandler(
	planRepo domain.PlanRepository,
	subRepo domain.SubscriptionRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	lifecycle domain.Lifecycle,
) *SubscribeHandler {
	return &SubscribeHandler{
		planRepo:   planRepo,
		subRepo:    subRepo,
		outboxRepo: outboxRepo,
		uow:        uow,
		lifecycle:  lifecycle,
		now:        time.Now,
	}
}

// Handle executes SubscribeCommand. A user holding an active subscription
// gets domain.ErrDuplicateActiveSubscription.
func (h *SubscribeHandler) Handle(ctx context.Context, cmd SubscribeCommand) (*SubscribeResult, error) {
	name, err := domain.ParsePlanName(cmd.PlanName)
	if err != nil {
		return nil, err
	}

	var result *SubscribeResult
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		plan, err := h.planRepo.FindByName(txCtx, name)
		if err != nil {
			return err
		}
		if plan == nil {
			return domain.ErrPlanNotFound
		}

		active, err := h.subRepo.FindActiveByUser(txCtx, cmd.UserID)
		if err != nil {
			return err
		}
		if active != nil {
			return domain.ErrDuplicateActiveSubscription
		}

		sub, err := domain.NewSubscription(cmd.UserID, plan, h.now(), h.lifecycle.CycleDays, h.lifecycle.Location)
		if err != nil {
			return err
		}
		if err := h.subRepo.Save(txCtx, sub); err != nil {
			return err
		}
		if err := publishEvents(txCtx, h.outboxRepo, cmd.UserID, sub); err != nil {
			return err
		}

		result = &SubscribeResult{
			SubscriptionID: sub.ID(),
			Plan:           plan.Name(),
			StartAt:        sub.StartAt(),
			EndDate:        sub.EndDate(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
