package domain

import (
	sharedDomain "github.com/felixgeelhaar/billcycle/internal/shared/domain"
)

const (
	AggregateType = "User"

	RoutingKeyUserRegistered    = "identity.user.registered"
	RoutingKeyUserPasswordReset = "identity.user.password_reset"
)

// UserRegistered is emitted on signup.
type UserRegistered struct {
	sharedDomain.BaseEvent
	Username string `json:"username"`
	Email    string `json:"email"`
}

// NewUserRegistered creates a UserRegistered event.
func NewUserRegistered(u *User) *UserRegistered {
	return &UserRegistered{
		BaseEvent: sharedDomain.NewBaseEvent(u.ID(), AggregateType, RoutingKeyUserRegistered, u.CreatedAt()),
		Username:  u.username.String(),
		Email:     u.email.String(),
	}
}

// UserPasswordReset is emitted when a reset token changes the password.
type UserPasswordReset struct {
	sharedDomain.BaseEvent
}

// NewUserPasswordReset creates a UserPasswordReset event.
func NewUserPasswordReset(u *User) *UserPasswordReset {
	return &UserPasswordReset{
		BaseEvent: sharedDomain.NewBaseEvent(u.ID(), AggregateType, RoutingKeyUserPasswordReset, u.UpdatedAt()),
	}
}
