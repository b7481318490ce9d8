package queries

import (
	"context"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanDTO is a read view of a plan.
type PlanDTO struct {
	ID    uuid.UUID
	Name  domain.PlanName
	Price decimal.Decimal
}

// ListPlansHandler lists the catalog.
type ListPlansHandler struct {
	planRepo domain.PlanRepository
}

// NewListPlansHandler creates a new ListPlansHandler.
func NewListPlansHandler(planRepo domain.PlanRepository) *ListPlansHandler {
	return &ListPlansHandler{planRepo: planRepo}
}

// Handle returns all plans, cheapest first.
func (h *ListPlansHandler) Handle(ctx context.Context) ([]PlanDTO, error) {
	plans, err := h.planRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	dtos := make([]PlanDTO, 0, len(plans))
	for _, p := range plans {
		dtos = append(dtos, PlanDTO{ID: p.ID(), Name: p.Name(), Price: p.Price()})
	}
	return dtos, nil
}
