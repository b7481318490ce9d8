package queries_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/billcycle/internal/billing/application/queries"
	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	"github.com/felixgeelhaar/billcycle/internal/billing/infrastructure/persistence"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/migrations"
)

type fixture struct {
	conn     database.Connection
	plans    *persistence.PlanRepository
	subs     *persistence.SubscriptionRepository
	invoices *persistence.InvoiceRepository
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))
	return fixture{
		conn:     conn,
		plans:    persistence.NewPlanRepository(conn),
		subs:     persistence.NewSubscriptionRepository(conn),
		invoices: persistence.NewInvoiceRepository(conn),
	}
}

func (f fixture) user(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	_, err := f.conn.Exec(context.Background(),
		`INSERT INTO users (id, username, email, password_hash, active, blocked, created_at, updated_at)
		 VALUES (?, ?, ?, 'x', 1, 0, ?, ?)`,
		id.String(), id.String(), id.String()+"@example.com", now, now)
	require.NoError(t, err)
	return id
}

func (f fixture) plan(t *testing.T, name domain.PlanName, price int64) *domain.Plan {
	t.Helper()
	plan, err := domain.NewPlan(name, decimal.NewFromInt(price), time.Now())
	require.NoError(t, err)
	require.NoError(t, f.plans.Save(context.Background(), plan))
	return plan
}

func TestListPlansHandler(t *testing.T) {
	f := setup(t)
	f.plan(t, domain.PlanEnterprise, 299)
	f.plan(t, domain.PlanBasic, 100)

	plans, err := queries.NewListPlansHandler(f.plans).Handle(context.Background())

	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, domain.PlanBasic, plans[0].Name)
	assert.True(t, plans[1].Price.Equal(decimal.NewFromInt(299)))
}

func TestGetSubscriptionInvoiceHandler(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	handler := queries.NewGetSubscriptionInvoiceHandler(f.subs, f.plans, f.invoices)
	plan := f.plan(t, domain.PlanPro, 199)
	ist := time.FixedZone("IST", 5*3600+1800)

	t.Run("no subscription", func(t *testing.T) {
		_, err := handler.Handle(ctx, queries.GetSubscriptionInvoiceQuery{UserID: f.user(t)})
		assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)
	})

	t.Run("active without invoice", func(t *testing.T) {
		userID := f.user(t)
		sub, err := domain.NewSubscription(userID, plan, time.Now(), 30, ist)
		require.NoError(t, err)
		require.NoError(t, f.subs.Save(ctx, sub))

		dto, err := handler.Handle(ctx, queries.GetSubscriptionInvoiceQuery{UserID: userID})

		require.NoError(t, err)
		assert.Equal(t, sub.ID(), dto.Subscription.ID)
		assert.Equal(t, domain.PlanPro, dto.Subscription.Plan)
		assert.Equal(t, domain.SubscriptionActive, dto.Subscription.Status)
		assert.Nil(t, dto.Invoice)
	})

	t.Run("expired falls back to latest with invoice", func(t *testing.T) {
		userID := f.user(t)
		sub, err := domain.NewSubscription(userID, plan, time.Date(2024, 12, 11, 10, 0, 0, 0, ist), 30, ist)
		require.NoError(t, err)
		today := domain.NewDate(2025, time.January, 10)
		require.NoError(t, domain.NewLifecycle(30, ist).Transition(sub, domain.SubscriptionExpired, domain.TransitionContext{Today: today}))
		require.NoError(t, f.subs.Save(ctx, sub))
		inv, err := domain.NewInvoiceGenerator(7).Generate(sub, plan, today)
		require.NoError(t, err)
		require.NoError(t, f.invoices.Save(ctx, inv))

		dto, err := handler.Handle(ctx, queries.GetSubscriptionInvoiceQuery{UserID: userID})

		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionExpired, dto.Subscription.Status)
		require.NotNil(t, dto.Invoice)
		assert.Equal(t, inv.ID(), dto.Invoice.ID)
		assert.Equal(t, "2025-01-17", dto.Invoice.DueDate.String())
		assert.True(t, dto.Invoice.Amount.Equal(decimal.NewFromInt(199)))
	})
}
