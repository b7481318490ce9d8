package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/database"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceRepository implements domain.InvoiceRepository.
type InvoiceRepository struct {
	conn database.Connection
}

// NewInvoiceRepository creates an invoice repository.
func NewInvoiceRepository(conn database.Connection) *InvoiceRepository {
	return &InvoiceRepository{conn: conn}
}

const selectInvoice = `
	SELECT id, user_id, subscription_id, amount, issue_date, due_date, period_end, status, created_at, updated_at
	FROM invoices`

func (r *InvoiceRepository) q(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

// Save inserts or updates an invoice. A second invoice for the same cycle
// maps to domain.ErrDuplicateInvoice.
func (r *InvoiceRepository) Save(ctx context.Context, inv *domain.Invoice) error {
	var subscriptionID any
	if id := inv.SubscriptionID(); id != nil {
		subscriptionID = id.String()
	}

	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, r.q(`
		INSERT INTO invoices (id, user_id, subscription_id, amount, issue_date, due_date, period_end, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			amount = excluded.amount,
			issue_date = excluded.issue_date,
			due_date = excluded.due_date,
			status = excluded.status,
			updated_at = excluded.updated_at`),
		inv.ID().String(),
		inv.UserID().String(),
		subscriptionID,
		inv.Amount(),
		inv.IssueDate(),
		inv.DueDate(),
		inv.PeriodEnd(),
		string(inv.Status()),
		inv.CreatedAt().UTC(),
		inv.UpdatedAt().UTC(),
	)
	if database.IsUniqueViolation(err) {
		return domain.ErrDuplicateInvoice
	}
	return database.WrapPersistence("save invoice", err)
}

// FindByID returns the invoice or nil.
func (r *InvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, r.q(selectInvoice+` WHERE id = ?`), id.String())
	return scanOneInvoice(row, "find invoice")
}

// FindLatestBySubscription returns the newest invoice of a subscription or nil.
func (r *InvoiceRepository) FindLatestBySubscription(ctx context.Context, subscriptionID uuid.UUID) (*domain.Invoice, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, r.q(selectInvoice+`
		WHERE subscription_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`), subscriptionID.String())
	return scanOneInvoice(row, "find latest invoice")
}

// FindOpenBySubscription returns the newest unpaid or overdue invoice or nil.
func (r *InvoiceRepository) FindOpenBySubscription(ctx context.Context, subscriptionID uuid.UUID) (*domain.Invoice, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, r.q(selectInvoice+`
		WHERE subscription_id = ? AND status IN ('unpaid', 'overdue')
		ORDER BY created_at DESC, id DESC
		LIMIT 1`), subscriptionID.String())
	return scanOneInvoice(row, "find open invoice")
}

// CountBySubscription counts the invoices of a subscription.
func (r *InvoiceRepository) CountBySubscription(ctx context.Context, subscriptionID uuid.UUID) (int, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	var n int
	err := exec.QueryRow(ctx, r.q(`SELECT COUNT(*) FROM invoices WHERE subscription_id = ?`), subscriptionID.String()).Scan(&n)
	if err != nil {
		return 0, database.WrapPersistence("count invoices", err)
	}
	return n, nil
}

func scanOneInvoice(row database.Row, op string) (*domain.Invoice, error) {
	inv, err := scanInvoice(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, database.WrapPersistence(op, err)
	}
	return inv, nil
}

func scanInvoice(row database.Row) (*domain.Invoice, error) {
	var (
		id, userID                    string
		subscriptionID                sql.NullString
		amount                        decimal.Decimal
		issueDate, dueDate, periodEnd domain.Date
		status                        string
		createdAt, updatedAt          time.Time
	)
	err := row.Scan(&id, &userID, &subscriptionID, &amount, &issueDate, &dueDate, &periodEnd, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	ids, err := parseUUIDs(id, userID)
	if err != nil {
		return nil, err
	}
	var subID *uuid.UUID
	if subscriptionID.Valid {
		parsed, err := uuid.Parse(subscriptionID.String)
		if err != nil {
			return nil, err
		}
		subID = &parsed
	}
	return domain.RehydrateInvoice(
		ids[0], ids[1], subID, amount,
		issueDate, dueDate, periodEnd,
		domain.InvoiceStatus(status),
		createdAt, updatedAt,
	), nil
}
