package domain_test

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlanName(t *testing.T) {
	name, err := domain.ParsePlanName(" pro ")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, name)

	_, err = domain.ParsePlanName("Gold")
	assert.ErrorIs(t, err, domain.ErrUnknownPlan)
}

func TestNewPlan(t *testing.T) {
	now := time.Now()

	plan, err := domain.NewPlan(domain.PlanBasic, decimal.NewFromInt(100), now)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanBasic, plan.Name())
	assert.True(t, plan.Price().Equal(decimal.NewFromInt(100)))

	_, err = domain.NewPlan(domain.PlanBasic, decimal.RequireFromString("99.50"), now)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = domain.NewPlan(domain.PlanBasic, decimal.NewFromInt(-1), now)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = domain.NewPlan("Gold", decimal.NewFromInt(1), now)
	assert.ErrorIs(t, err, domain.ErrUnknownPlan)
}

func TestDefaultCatalog(t *testing.T) {
	catalog := domain.DefaultCatalog()
	require.Len(t, catalog, 3)

	prices := map[domain.PlanName]int64{}
	for _, entry := range catalog {
		prices[entry.Name] = entry.Price.IntPart()
	}
	assert.Equal(t, map[domain.PlanName]int64{
		domain.PlanBasic:      100,
		domain.PlanPro:        199,
		domain.PlanEnterprise: 299,
	}, prices)
}
