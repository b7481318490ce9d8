package domain

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user persistence. Finders return
// (nil, nil) when no user matches.
type UserRepository interface {
	Save(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email Email) (*User, error)
	FindByUsername(ctx context.Context, username Username) (*User, error)
	ExistsByEmail(ctx context.Context, email Email) (bool, error)
	ExistsByUsername(ctx context.Context, username Username) (bool, error)
	// Delete removes the user after their invoices and subscriptions.
	Delete(ctx context.Context, id uuid.UUID) error
}
