package persistence

import (
	"context"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SubscriptionRepository implements domain.SubscriptionRepository.
type SubscriptionRepository struct {
	conn database.Connection
}

// NewSubscriptionRepository creates a subscription repository.
func NewSubscriptionRepository(conn database.Connection) *SubscriptionRepository {
	return &SubscriptionRepository{conn: conn}
}

const selectSubscription = `
	SELECT id, user_id, plan_id, start_at, end_at, end_date, status, created_at, updated_at
	FROM subscriptions`

func (r *SubscriptionRepository) q(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

// Save inserts or updates a subscription. A second active subscription for
// the same user maps to domain.ErrDuplicateActiveSubscription.
func (r *SubscriptionRepository) Save(ctx context.Context, sub *domain.Subscription) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, r.q(`
		INSERT INTO subscriptions (id, user_id, plan_id, start_at, end_at, end_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			plan_id = excluded.plan_id,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			end_date = excluded.end_date,
			status = excluded.status,
			updated_at = excluded.updated_at`),
		sub.ID().String(),
		sub.UserID().String(),
		sub.PlanID().String(),
		sub.StartAt().UTC(),
		sub.EndAt().UTC(),
		sub.EndDate(),
		string(sub.Status()),
		sub.CreatedAt().UTC(),
		sub.UpdatedAt().UTC(),
	)
	if database.IsUniqueViolation(err) {
		return domain.ErrDuplicateActiveSubscription
	}
	return database.WrapPersistence("save subscription", err)
}

// FindByID returns the subscription or nil.
func (r *SubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, r.q(selectSubscription+` WHERE id = ?`), id.String())
	return scanOneSubscription(row, "find subscription")
}

// FindActiveByUser returns the user's active subscription or nil.
func (r *SubscriptionRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, r.q(selectSubscription+` WHERE user_id = ? AND status = 'active'`), userID.String())
	return scanOneSubscription(row, "find active subscription")
}

// FindLatestByUser returns the user's most recently started subscription in
// status, or in any status when status is empty.
func (r *SubscriptionRepository) FindLatestByUser(ctx context.Context, userID uuid.UUID, status domain.SubscriptionStatus) (*domain.Subscription, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	query := selectSubscription + ` WHERE user_id = ?`
	args := []any{userID.String()}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY start_at DESC, created_at DESC LIMIT 1`

	row := exec.QueryRow(ctx, r.q(query), args...)
	return scanOneSubscription(row, "find latest subscription")
}

// FindActiveDue lists active subscriptions ending on or before asOf.
func (r *SubscriptionRepository) FindActiveDue(ctx context.Context, asOf domain.Date) ([]*domain.Subscription, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, r.q(selectSubscription+`
		WHERE status = 'active' AND end_date <= ?
		ORDER BY end_date, id`), asOf)
	if err != nil {
		return nil, database.WrapPersistence("find due subscriptions", err)
	}
	defer rows.Close()

	var subs []*domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, database.WrapPersistence("scan subscription", err)
		}
		subs = append(subs, sub)
	}
	return subs, database.WrapPersistence("find due subscriptions", rows.Err())
}

// LockActiveDue re-reads a due subscription inside the current transaction.
// PostgreSQL takes a row lock and skips rows another sweeper holds; SQLite
// already serializes writers.
func (r *SubscriptionRepository) LockActiveDue(ctx context.Context, id uuid.UUID, asOf domain.Date) (*domain.Subscription, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	query := selectSubscription + ` WHERE id = ? AND status = 'active' AND end_date <= ?`
	if r.conn.Driver().Dialect() == database.DriverPostgres {
		query += ` FOR UPDATE SKIP LOCKED`
	}
	row := exec.QueryRow(ctx, r.q(query), id.String(), asOf)
	return scanOneSubscription(row, "lock subscription")
}

func scanOneSubscription(row database.Row, op string) (*domain.Subscription, error) {
	sub, err := scanSubscription(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, database.WrapPersistence(op, err)
	}
	return sub, nil
}

func scanSubscription(row database.Row) (*domain.Subscription, error) {
	var (
		id, userID, planID   string
		startAt, endAt       time.Time
		endDate              domain.Date
		status               string
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &userID, &planID, &startAt, &endAt, &endDate, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	ids, err := parseUUIDs(id, userID, planID)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateSubscription(
		ids[0], ids[1], ids[2],
		startAt, endAt, endDate,
		domain.SubscriptionStatus(status),
		createdAt, updatedAt,
	), nil
}

func parseUUIDs(values ...string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(values))
	for i, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}
