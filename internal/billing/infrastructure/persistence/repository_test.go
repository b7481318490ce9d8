package persistence_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	"github.com/felixgeelhaar/billcycle/internal/billing/infrastructure/persistence"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/migrations"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type repos struct {
	conn          database.Connection
	plans         *persistence.PlanRepository
	subscriptions *persistence.SubscriptionRepository
	invoices      *persistence.InvoiceRepository
}

func setupSQLite(t *testing.T) repos {
	t.Helper()
	ctx := context.Background()
	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))

	return repos{
		conn:          conn,
		plans:         persistence.NewPlanRepository(conn),
		subscriptions: persistence.NewSubscriptionRepository(conn),
		invoices:      persistence.NewInvoiceRepository(conn),
	}
}

func insertUser(t *testing.T, conn database.Connection) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	_, err := conn.Exec(context.Background(),
		`INSERT INTO users (id, username, email, password_hash, active, blocked, created_at, updated_at)
		 VALUES (?, ?, ?, 'x', 1, 0, ?, ?)`,
		id.String(), "user-"+id.String()[:8], id.String()[:8]+"@example.com", now, now)
	require.NoError(t, err)
	return id
}

func savePlan(t *testing.T, r repos, name domain.PlanName, price int64) *domain.Plan {
	t.Helper()
	plan, err := domain.NewPlan(name, decimal.NewFromInt(price), time.Now())
	require.NoError(t, err)
	require.NoError(t, r.plans.Save(context.Background(), plan))
	return plan
}

// saveSubscription stores an active subscription ending on 2025-01-10.
func saveSubscription(t *testing.T, r repos, userID uuid.UUID, plan *domain.Plan) *domain.Subscription {
	t.Helper()
	start := time.Date(2024, 12, 11, 10, 0, 0, 0, ist)
	sub, err := domain.NewSubscription(userID, plan, start, 30, ist)
	require.NoError(t, err)
	require.NoError(t, r.subscriptions.Save(context.Background(), sub))
	return sub
}

func TestPlanRepository_SQLite(t *testing.T) {
	ctx := context.Background()
	r := setupSQLite(t)

	savePlan(t, r, domain.PlanEnterprise, 299)
	pro := savePlan(t, r, domain.PlanPro, 199)
	savePlan(t, r, domain.PlanBasic, 100)

	found, err := r.plans.FindByName(ctx, domain.PlanPro)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, pro.ID(), found.ID())
	assert.True(t, found.Price().Equal(decimal.NewFromInt(199)))

	missing, err := r.plans.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	plans, err := r.plans.List(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, domain.PlanBasic, plans[0].Name())
	assert.Equal(t, domain.PlanEnterprise, plans[2].Name())

	dup, err := domain.NewPlan(domain.PlanPro, decimal.NewFromInt(1), time.Now())
	require.NoError(t, err)
	err = r.plans.Save(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestPlanRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	r := setupSQLite(t)
	plan := savePlan(t, r, domain.PlanBasic, 100)
	sub := saveSubscription(t, r, insertUser(t, r.conn), plan)
	inv, err := domain.NewInvoiceGenerator(7).Generate(sub, plan, sub.EndDate())
	require.NoError(t, err)
	require.NoError(t, r.invoices.Save(ctx, inv))

	require.NoError(t, r.plans.Delete(ctx, plan.ID()))

	gotSub, err := r.subscriptions.FindByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.Nil(t, gotSub)
	gotInv, err := r.invoices.FindByID(ctx, inv.ID())
	require.NoError(t, err)
	assert.Nil(t, gotInv)
}

func TestSubscriptionRepository_SQLite(t *testing.T) {
	ctx := context.Background()
	r := setupSQLite(t)
	plan := savePlan(t, r, domain.PlanPro, 199)
	userID := insertUser(t, r.conn)
	sub := saveSubscription(t, r, userID, plan)

	t.Run("round trip keeps the business end date", func(t *testing.T) {
		got, err := r.subscriptions.FindByID(ctx, sub.ID())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, userID, got.UserID())
		assert.Equal(t, plan.ID(), got.PlanID())
		assert.Equal(t, "2025-01-10", got.EndDate().String())
		assert.True(t, got.EndAt().Equal(sub.EndAt()))
		assert.Equal(t, domain.SubscriptionActive, got.Status())
	})

	t.Run("second active subscription is rejected", func(t *testing.T) {
		other, err := domain.NewSubscription(userID, plan, time.Now(), 30, ist)
		require.NoError(t, err)

		err = r.subscriptions.Save(ctx, other)

		assert.ErrorIs(t, err, domain.ErrDuplicateActiveSubscription)
		got, err := r.subscriptions.FindByID(ctx, other.ID())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("due selection uses calendar dates", func(t *testing.T) {
		due, err := r.subscriptions.FindActiveDue(ctx, domain.NewDate(2025, time.January, 9))
		require.NoError(t, err)
		assert.Empty(t, due)

		due, err = r.subscriptions.FindActiveDue(ctx, domain.NewDate(2025, time.January, 10))
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, sub.ID(), due[0].ID())

		due, err = r.subscriptions.FindActiveDue(ctx, domain.NewDate(2025, time.March, 1))
		require.NoError(t, err)
		assert.Len(t, due, 1)
	})

	t.Run("lock returns nil once expired", func(t *testing.T) {
		asOf := domain.NewDate(2025, time.January, 10)
		locked, err := r.subscriptions.LockActiveDue(ctx, sub.ID(), asOf)
		require.NoError(t, err)
		require.NotNil(t, locked)

		lc := domain.NewLifecycle(30, ist)
		require.NoError(t, lc.Transition(locked, domain.SubscriptionExpired, domain.TransitionContext{Today: asOf}))
		require.NoError(t, r.subscriptions.Save(ctx, locked))

		again, err := r.subscriptions.LockActiveDue(ctx, sub.ID(), asOf)
		require.NoError(t, err)
		assert.Nil(t, again)

		active, err := r.subscriptions.FindActiveByUser(ctx, userID)
		require.NoError(t, err)
		assert.Nil(t, active)

		latest, err := r.subscriptions.FindLatestByUser(ctx, userID, domain.SubscriptionExpired)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, sub.ID(), latest.ID())
	})
}

func TestInvoiceRepository_SQLite(t *testing.T) {
	ctx := context.Background()
	r := setupSQLite(t)
	plan := savePlan(t, r, domain.PlanPro, 199)
	sub := saveSubscription(t, r, insertUser(t, r.conn), plan)
	asOf := domain.NewDate(2025, time.January, 10)

	inv, err := domain.NewInvoiceGenerator(7).Generate(sub, plan, asOf)
	require.NoError(t, err)
	require.NoError(t, r.invoices.Save(ctx, inv))

	t.Run("round trip", func(t *testing.T) {
		got, err := r.invoices.FindByID(ctx, inv.ID())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Amount().Equal(decimal.NewFromInt(199)))
		assert.Equal(t, "2025-01-10", got.IssueDate().String())
		assert.Equal(t, "2025-01-17", got.DueDate().String())
		assert.Equal(t, sub.EndDate(), got.PeriodEnd())
		assert.Equal(t, domain.InvoiceUnpaid, got.Status())
		assert.True(t, got.BelongsTo(sub))
	})

	t.Run("one invoice per cycle", func(t *testing.T) {
		again, err := domain.NewInvoiceGenerator(7).Generate(sub, plan, asOf)
		require.NoError(t, err)

		err = r.invoices.Save(ctx, again)

		assert.ErrorIs(t, err, domain.ErrDuplicateInvoice)
		n, err := r.invoices.CountBySubscription(ctx, sub.ID())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("open invoice lookup follows status", func(t *testing.T) {
		open, err := r.invoices.FindOpenBySubscription(ctx, sub.ID())
		require.NoError(t, err)
		require.NotNil(t, open)

		require.NoError(t, open.MarkPaid(domain.NewDate(2025, time.January, 12), time.Now()))
		require.NoError(t, r.invoices.Save(ctx, open))

		open, err = r.invoices.FindOpenBySubscription(ctx, sub.ID())
		require.NoError(t, err)
		assert.Nil(t, open)

		latest, err := r.invoices.FindLatestBySubscription(ctx, sub.ID())
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, domain.InvoicePaid, latest.Status())
		assert.Equal(t, "2025-01-12", latest.IssueDate().String())
	})
}

func TestSubscriptionRepository_PostgresLocking(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := persistence.NewSubscriptionRepository(database.NewSQLConnection(db, database.DriverPQ))
	id := uuid.New()
	asOf := domain.NewDate(2025, time.January, 10)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND status = 'active' AND end_date <= $2 FOR UPDATE SKIP LOCKED`)).
		WithArgs(id.String(), "2025-01-10").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	sub, err := repo.LockActiveDue(context.Background(), id, asOf)

	require.NoError(t, err)
	assert.Nil(t, sub)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepository_PostgresDueQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := persistence.NewSubscriptionRepository(database.NewSQLConnection(db, database.DriverPQ))
	id, userID, planID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now().UTC()
	cols := []string{"id", "user_id", "plan_id", "start_at", "end_at", "end_date", "status", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE status = 'active' AND end_date <= $1`)).
		WithArgs("2025-01-10").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			id.String(), userID.String(), planID.String(), now, now,
			time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), "active", now, now))

	subs, err := repo.FindActiveDue(context.Background(), domain.NewDate(2025, time.January, 10))

	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, id, subs[0].ID())
	assert.Equal(t, "2025-01-10", subs[0].EndDate().String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepository_PostgresDeleteOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := persistence.NewPlanRepository(database.NewSQLConnection(db, database.DriverPQ))
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM invoices WHERE subscription_id IN (SELECT id FROM subscriptions WHERE plan_id = $1)`)).
		WithArgs(id.String()).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM subscriptions WHERE plan_id = $1`)).
		WithArgs(id.String()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM plans WHERE id = $1`)).
		WithArgs(id.String()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepository_PostgresDeleteRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := persistence.NewPlanRepository(database.NewSQLConnection(db, database.DriverPQ))
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM invoices`)).
		WithArgs(id.String()).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = repo.Delete(context.Background(), id)

	assert.ErrorIs(t, err, domain.ErrPersistence)
	require.NoError(t, mock.ExpectationsWereMet())
}
