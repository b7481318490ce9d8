package persistence

import (
	"context"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/database"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanRepository implements domain.PlanRepository on a database.Connection.
type PlanRepository struct {
	conn database.Connection
}

// NewPlanRepository creates a plan repository.
func NewPlanRepository(conn database.Connection) *PlanRepository {
	return &PlanRepository{conn: conn}
}

const selectPlan = `SELECT id, name, price, created_at, updated_at FROM plans`

func (r *PlanRepository) q(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

// Save inserts or updates a plan.
func (r *PlanRepository) Save(ctx context.Context, plan *domain.Plan) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, r.q(`
		INSERT INTO plans (id, name, price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			updated_at = excluded.updated_at`),
		plan.ID().String(),
		string(plan.Name()),
		plan.Price(),
		plan.CreatedAt().UTC(),
		plan.UpdatedAt().UTC(),
	)
	return database.WrapPersistence("save plan", err)
}

// FindByID returns the plan or nil.
func (r *PlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, r.q(selectPlan+` WHERE id = ?`), id.String())
	return r.scanOne(row, "find plan")
}

// FindByName returns the plan or nil.
func (r *PlanRepository) FindByName(ctx context.Context, name domain.PlanName) (*domain.Plan, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, r.q(selectPlan+` WHERE name = ?`), string(name))
	return r.scanOne(row, "find plan by name")
}

// List returns all plans, cheapest first.
func (r *PlanRepository) List(ctx context.Context) ([]*domain.Plan, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, selectPlan+` ORDER BY CAST(price AS REAL), name`)
	if err != nil {
		return nil, database.WrapPersistence("list plans", err)
	}
	defer rows.Close()

	var plans []*domain.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, database.WrapPersistence("scan plan", err)
		}
		plans = append(plans, plan)
	}
	return plans, database.WrapPersistence("list plans", rows.Err())
}

// Delete removes the plan after its subscriptions and their invoices.
func (r *PlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.InTx(ctx, r.conn, func(exec database.Executor) error {
		steps := []string{
			`DELETE FROM invoices WHERE subscription_id IN (SELECT id FROM subscriptions WHERE plan_id = ?)`,
			`DELETE FROM subscriptions WHERE plan_id = ?`,
			`DELETE FROM plans WHERE id = ?`,
		}
		for _, stmt := range steps {
			if _, err := exec.Exec(ctx, r.q(stmt), id.String()); err != nil {
				return database.WrapPersistence("delete plan", err)
			}
		}
		return nil
	})
}

func (r *PlanRepository) scanOne(row database.Row, op string) (*domain.Plan, error) {
	plan, err := scanPlan(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, database.WrapPersistence(op, err)
	}
	return plan, nil
}

func scanPlan(row database.Row) (*domain.Plan, error) {
	var (
		id, name             string
		price                decimal.Decimal
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &name, &price, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	planID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return domain.RehydratePlan(planID, domain.PlanName(name), price, createdAt, updatedAt), nil
}
