// Package auth implements signup, credential checks and password resets.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/identity/domain"
	sharedApplication "github.com/felixgeelhaar/billcycle/internal/shared/application"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// ResetGrant is what a reset token stands for. Fingerprint binds it to the
// password hash current at issue time.
type ResetGrant struct {
	UserID      uuid.UUID
	Fingerprint string
}

// ResetTokenStore keeps single-use reset grants with a TTL.
type ResetTokenStore interface {
	Put(ctx context.Context, token string, grant ResetGrant, ttl time.Duration) error
	// Consume returns and removes the grant, or nil when there is none.
	Consume(ctx context.Context, token string) (*ResetGrant, error)
}

// UserDTO is the public view of a user.
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserDTO(u *domain.User) *UserDTO {
	return &UserDTO{
		ID:        u.ID(),
		Username:  u.Username().String(),
		Email:     u.Email().String(),
		Active:    u.IsActive() && !u.IsBlocked(),
		CreatedAt: u.CreatedAt(),
	}
}

// Fingerprint digests a password hash so a reset grant can be checked
// against the current credential without storing it.
func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:])
}

func publishEvents(ctx context.Context, repo outbox.Repository, user *domain.User) error {
	events := user.DomainEvents()
	if len(events) == 0 {
		return nil
	}
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ctx, user.ID()))

	msgs, err := outbox.MessagesFromEvents(events)
	if err != nil {
		return err
	}
	if err := repo.SaveBatch(ctx, msgs); err != nil {
		return err
	}
	user.ClearDomainEvents()
	return nil
}
