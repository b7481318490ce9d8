package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/billcycle/internal/shared/domain"
	"github.com/google/uuid"
)

// User represents an account that can hold subscriptions.
type User struct {
	sharedDomain.BaseAggregateRoot
	username     Username
	email        Email
	passwordHash string
	active       bool
	blocked      bool
}

// NewUser registers an active user with an already hashed password.
func NewUser(username Username, email Email, passwordHash string, now time.Time) *User {
	u := &User{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(now),
		username:          username,
		email:             email,
		passwordHash:      passwordHash,
		active:            true,
	}

	u.AddDomainEvent(NewUserRegistered(u))

	return u
}

// RehydrateUser recreates a user from persisted state.
func RehydrateUser(
	id uuid.UUID,
	username Username,
	email Email,
	passwordHash string,
	active, blocked bool,
	createdAt, updatedAt time.Time,
) *User {
	return &User{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		username:     username,
		email:        email,
		passwordHash: passwordHash,
		active:       active,
		blocked:      blocked,
	}
}

// Getters
func (u *User) Username() Username   { return u.username }
func (u *User) Email() Email         { return u.email }
func (u *User) PasswordHash() string { return u.passwordHash }
func (u *User) IsActive() bool       { return u.active }
func (u *User) IsBlocked() bool      { return u.blocked }

// CanSignIn reports ErrInactiveUser for deactivated or blocked accounts.
func (u *User) CanSignIn() error {
	if !u.active || u.blocked {
		return ErrInactiveUser
	}
	return nil
}

// ChangePassword replaces the credential hash.
func (u *User) ChangePassword(passwordHash string, now time.Time) {
	u.passwordHash = passwordHash
	u.Touch(now)

	u.AddDomainEvent(NewUserPasswordReset(u))
}

// Block prevents sign in and password resets.
func (u *User) Block(now time.Time) {
	if u.blocked {
		return
	}
	u.blocked = true
	u.Touch(now)
}
