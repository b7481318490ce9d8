package commands

import (
	"context"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	sharedApplication "github.com/felixgeelhaar/billcycle/internal/shared/application"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// UnsubscribeCommand cancels the user's active subscription.
type UnsubscribeCommand struct {
	UserID uuid.UUID
}

// UnsubscribeHandler handles UnsubscribeCommand.
type UnsubscribeHandler struct {
	subRepo    domain.SubscriptionRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	lifecycle  domain.Lifecycle
	now        func() time.Time
}

// NewUnsubscribeHandler creates a new UnsubscribeHandler.
func NewUnsubscribeHandler(
	subRepo domain.SubscriptionRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	lifecycle domain.Lifecycle,
) *UnsubscribeHandler {
	return &UnsubscribeHandler{
		subRepo:    subRepo,
		outboxRepo: outboxRepo,
		uow:        uow,
		lifecycle:  lifecycle,
		now:        time.Now,
	}
}

// Handle executes UnsubscribeCommand and returns the cancelled subscription id.
func (h *UnsubscribeHandler) Handle(ctx context.Context, cmd UnsubscribeCommand) (uuid.UUID, error) {
	var cancelled uuid.UUID

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		sub, err := h.subRepo.FindActiveByUser(txCtx, cmd.UserID)
		if err != nil {
			return err
		}
		if sub == nil {
			return domain.ErrNoActiveSubscription
		}

		now := h.now()
		if err := h.lifecycle.Transition(sub, domain.SubscriptionCancelled, domain.TransitionContext{
			Today: domain.DateOf(now, h.lifecycle.Location),
			Now:   now,
		}); err != nil {
			return err
		}
		if err := h.subRepo.Save(txCtx, sub); err != nil {
			return err
		}
		if err := publishEvents(txCtx, h.outboxRepo, cmd.UserID, sub); err != nil {
			return err
		}

		cancelled = sub.ID()
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	return cancelled, nil
}
