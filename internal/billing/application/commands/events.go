package commands

import (
	"context"

	sharedApplication "github.com/felixgeelhaar/billcycle/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/billcycle/internal/shared/domain"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// publishEvents writes the pending events of aggregates to the outbox in the
// current unit of work and clears them.
func publishEvents(ctx context.Context, repo outbox.Repository, userID uuid.UUID, aggregates ...sharedDomain.AggregateRoot) error {
	var events []sharedDomain.DomainEvent
	for _, agg := range aggregates {
		events = append(events, agg.DomainEvents()...)
	}
	if len(events) == 0 {
		return nil
	}
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ctx, userID))

	msgs, err := outbox.MessagesFromEvents(events)
	if err != nil {
		return err
	}
	if err := repo.SaveBatch(ctx, msgs); err != nil {
		return err
	}
	for _, agg := range aggregates {
		agg.ClearDomainEvents()
	}
	return nil
}
