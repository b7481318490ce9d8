package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	sharedApplication "github.com/felixgeelhaar/billcycle/internal/shared/application"
)

// SeedPlansResult lists the plans created by a seed run.
type SeedPlansResult struct {
	Created []domain.PlanName
}

// SeedPlansHandler inserts the default catalog. Existing plans are left as
// they are, so running it again is harmless.
type SeedPlansHandler struct {
	planRepo domain.PlanRepository
	uow      sharedApplication.UnitOfWork
	logger   *slog.Logger
}

// NewSeedPlansHandler creates a new SeedPlansHandler.
func NewSeedPlansHandler(planRepo domain.PlanRepository, uow sharedApplication.UnitOfWork, logger *slog.Logger) *SeedPlansHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeedPlansHandler{planRepo: planRepo, uow: uow, logger: logger}
}

// Handle seeds the catalog.
func (h *SeedPlansHandler) Handle(ctx context.Context) (*SeedPlansResult, error) {
	result := &SeedPlansResult{}

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		for _, entry := range domain.DefaultCatalog() {
			existing, err := h.planRepo.FindByName(txCtx, entry.Name)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}

			plan, err := domain.NewPlan(entry.Name, entry.Price, time.Now())
			if err != nil {
				return err
			}
			if err := h.planRepo.Save(txCtx, plan); err != nil {
				return err
			}
			result.Created = append(result.Created, entry.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Created) > 0 {
		h.logger.Info("seeded plans", "created", result.Created)
	}
	return result, nil
}
