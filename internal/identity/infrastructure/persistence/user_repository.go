package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/identity/domain"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// UserRepository implements domain.UserRepository on a database.Connection.
type UserRepository struct {
	conn database.Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn database.Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const selectUser = `
	SELECT id, username, email, password_hash, active, blocked, created_at, updated_at
	FROM users`

func (r *UserRepository) q(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

// Save persists a user. A unique violation maps to domain.ErrEmailTaken or
// domain.ErrUsernameTaken.
func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, r.q(`
		INSERT INTO users (id, username, email, password_hash, active, blocked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			email = excluded.email,
			password_hash = excluded.password_hash,
			active = excluded.active,
			blocked = excluded.blocked,
			updated_at = excluded.updated_at`),
		user.ID().String(),
		user.Username().String(),
		user.Email().String(),
		user.PasswordHash(),
		user.IsActive(),
		user.IsBlocked(),
		user.CreatedAt().UTC(),
		user.UpdatedAt().UTC(),
	)
	if database.IsUniqueViolation(err) {
		if strings.Contains(err.Error(), "email") {
			return domain.ErrEmailTaken
		}
		return domain.ErrUsernameTaken
	}
	return database.WrapPersistence("save user", err)
}

// FindByID retrieves a user by their ID.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, r.q(selectUser+` WHERE id = ?`), id.String())
	return r.scanOne(row, "find user")
}

// FindByEmail retrieves a user by their email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, r.q(selectUser+` WHERE lower(email) = ?`), email.String())
	return r.scanOne(row, "find user by email")
}

// FindByUsername retrieves a user by username, ignoring case.
func (r *UserRepository) FindByUsername(ctx context.Context, username domain.Username) (*domain.User, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	row := exec.QueryRow(ctx, r.q(selectUser+` WHERE lower(username) = lower(?)`), username.String())
	return r.scanOne(row, "find user by username")
}

// ExistsByEmail checks if a user with the given email exists.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email domain.Email) (bool, error) {
	return r.exists(ctx, `SELECT COUNT(*) FROM users WHERE lower(email) = ?`, email.String())
}

// ExistsByUsername checks if the username is taken, ignoring case.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username domain.Username) (bool, error) {
	return r.exists(ctx, `SELECT COUNT(*) FROM users WHERE lower(username) = lower(?)`, username.String())
}

// Delete removes a user together with their invoices and subscriptions.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.InTx(ctx, r.conn, func(exec database.Executor) error {
		steps := []string{
			`DELETE FROM invoices WHERE user_id = ?`,
			`DELETE FROM subscriptions WHERE user_id = ?`,
			`DELETE FROM users WHERE id = ?`,
		}
		for _, stmt := range steps {
			if _, err := exec.Exec(ctx, r.q(stmt), id.String()); err != nil {
				return database.WrapPersistence("delete user", err)
			}
		}
		return nil
	})
}

func (r *UserRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	var count int
	if err := exec.QueryRow(ctx, r.q(query), arg).Scan(&count); err != nil {
		return false, database.WrapPersistence("count users", err)
	}
	return count > 0, nil
}

func (r *UserRepository) scanOne(row database.Row, op string) (*domain.User, error) {
	user, err := scanUser(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, database.WrapPersistence(op, err)
	}
	return user, nil
}

// scanUser converts a database row to a domain User.
func scanUser(row database.Row) (*domain.User, error) {
	var (
		id, username, email, hash string
		active, blocked           bool
		createdAt, updatedAt      time.Time
	)
	if err := row.Scan(&id, &username, &email, &hash, &active, &blocked, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	name, err := domain.NewUsername(username)
	if err != nil {
		return nil, err
	}
	addr, err := domain.NewEmail(email)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateUser(userID, name, addr, hash, active, blocked, createdAt, updatedAt), nil
}
