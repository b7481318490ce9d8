package domain_test

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceGenerator_Generate(t *testing.T) {
	plan := newPlan(t, domain.PlanPro, 199)
	sub := newDueSubscription(t, plan)
	asOf := domain.NewDate(2025, time.January, 10)
	gen := domain.NewInvoiceGenerator(7)

	inv, err := gen.Generate(sub, plan, asOf)

	require.NoError(t, err)
	assert.Equal(t, sub.UserID(), inv.UserID())
	require.NotNil(t, inv.SubscriptionID())
	assert.Equal(t, sub.ID(), *inv.SubscriptionID())
	assert.True(t, inv.Amount().Equal(decimal.NewFromInt(199)))
	assert.Equal(t, "2025-01-10", inv.IssueDate().String())
	assert.Equal(t, "2025-01-17", inv.DueDate().String())
	assert.Equal(t, sub.EndDate(), inv.PeriodEnd())
	assert.Equal(t, domain.InvoiceUnpaid, inv.Status())
	assert.True(t, inv.BelongsTo(sub))

	require.Len(t, inv.DomainEvents(), 1)
	generated, ok := inv.DomainEvents()[0].(*domain.InvoiceGeneratedEvent)
	require.True(t, ok)
	assert.Equal(t, domain.RoutingKeyInvoiceGenerated, generated.RoutingKey())
	assert.Equal(t, "2025-01-17", generated.DueDate.String())
}

func TestInvoiceGenerator_AmountIsFixedAtGeneration(t *testing.T) {
	plan := newPlan(t, domain.PlanBasic, 100)
	sub := newDueSubscription(t, plan)

	inv, err := domain.NewInvoiceGenerator(7).Generate(sub, plan, sub.EndDate())
	require.NoError(t, err)

	repriced := domain.RehydratePlan(plan.ID(), plan.Name(), decimal.NewFromInt(150), plan.CreatedAt(), time.Now())
	assert.True(t, inv.Amount().Equal(decimal.NewFromInt(100)))
	assert.False(t, inv.Amount().Equal(repriced.Price()))
}

func TestInvoiceGenerator_CustomGrace(t *testing.T) {
	plan := newPlan(t, domain.PlanBasic, 100)
	sub := newDueSubscription(t, plan)

	inv, err := domain.NewInvoiceGenerator(14).Generate(sub, plan, domain.NewDate(2025, time.January, 10))

	require.NoError(t, err)
	assert.Equal(t, "2025-01-24", inv.DueDate().String())
}

func TestInvoiceGenerator_PlanErrors(t *testing.T) {
	plan := newPlan(t, domain.PlanBasic, 100)
	sub := newDueSubscription(t, plan)
	gen := domain.NewInvoiceGenerator(7)

	_, err := gen.Generate(sub, nil, sub.EndDate())
	assert.ErrorIs(t, err, domain.ErrPlanMissing)

	_, err = gen.Generate(sub, newPlan(t, domain.PlanPro, 199), sub.EndDate())
	assert.ErrorIs(t, err, domain.ErrPlanMismatch)
}

func TestInvoice_StatusChanges(t *testing.T) {
	newInvoice := func() *domain.Invoice {
		subID := uuid.New()
		return domain.RehydrateInvoice(uuid.New(), uuid.New(), &subID, decimal.NewFromInt(100),
			domain.NewDate(2025, time.January, 10), domain.NewDate(2025, time.January, 17),
			domain.NewDate(2025, time.January, 10), domain.InvoiceUnpaid, time.Now(), time.Now())
	}
	paidOn := domain.NewDate(2025, time.January, 12)

	t.Run("pay resets issue date", func(t *testing.T) {
		inv := newInvoice()
		require.NoError(t, inv.MarkPaid(paidOn, time.Now()))
		assert.Equal(t, domain.InvoicePaid, inv.Status())
		assert.Equal(t, paidOn, inv.IssueDate())
		assert.Equal(t, "2025-01-17", inv.DueDate().String())
	})

	t.Run("overdue then paid", func(t *testing.T) {
		inv := newInvoice()
		require.NoError(t, inv.MarkOverdue(time.Now()))
		require.NoError(t, inv.MarkOverdue(time.Now()))
		assert.Equal(t, domain.InvoiceOverdue, inv.Status())
		assert.Len(t, inv.DomainEvents(), 1)

		require.NoError(t, inv.MarkPaid(paidOn, time.Now()))
		assert.Equal(t, domain.InvoicePaid, inv.Status())
	})

	t.Run("paid is final", func(t *testing.T) {
		inv := newInvoice()
		require.NoError(t, inv.MarkPaid(paidOn, time.Now()))
		assert.ErrorIs(t, inv.MarkPaid(paidOn, time.Now()), domain.ErrInvoiceNotPayable)
		assert.ErrorIs(t, inv.MarkOverdue(time.Now()), domain.ErrInvoiceNotPayable)
	})
}
