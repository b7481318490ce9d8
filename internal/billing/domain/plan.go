package domain

import (
	"fmt"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/billcycle/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanName is one of the catalog tiers.
type PlanName string

const (
	PlanBasic      PlanName = "Basic"
	PlanPro        PlanName = "Pro"
	PlanEnterprise PlanName = "Enterprise"
)

// PlanNames lists the catalog in display order.
func PlanNames() []PlanName {
	return []PlanName{PlanBasic, PlanPro, PlanEnterprise}
}

// ParsePlanName matches a catalog tier case-insensitively.
func ParsePlanName(s string) (PlanName, error) {
	for _, name := range PlanNames() {
		if strings.EqualFold(strings.TrimSpace(s), string(name)) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlan, s)
}

func (n PlanName) String() string { return string(n) }

// Plan is a priced catalog entry.
type Plan struct {
	sharedDomain.BaseEntity
	name  PlanName
	price decimal.Decimal
}

// NewPlan creates a plan. Prices are whole, non-negative amounts.
func NewPlan(name PlanName, price decimal.Decimal, now time.Time) (*Plan, error) {
	if _, err := ParsePlanName(string(name)); err != nil {
		return nil, err
	}
	if price.IsNegative() || !price.Equal(price.Truncate(0)) {
		return nil, ErrInvalidPrice
	}
	return &Plan{
		BaseEntity: sharedDomain.NewBaseEntity(now),
		name:       name,
		price:      price,
	}, nil
}

// RehydratePlan recreates a plan from persisted state.
func RehydratePlan(id uuid.UUID, name PlanName, price decimal.Decimal, createdAt, updatedAt time.Time) *Plan {
	return &Plan{
		BaseEntity: sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		name:       name,
		price:      price,
	}
}

func (p *Plan) Name() PlanName         { return p.name }
func (p *Plan) Price() decimal.Decimal { return p.price }

// CatalogEntry is a seedable plan definition.
type CatalogEntry struct {
	Name  PlanName
	Price decimal.Decimal
}

// DefaultCatalog returns the plans seeded at startup.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{Name: PlanBasic, Price: decimal.NewFromInt(100)},
		{Name: PlanPro, Price: decimal.NewFromInt(199)},
		{Name: PlanEnterprise, Price: decimal.NewFromInt(299)},
	}
}
