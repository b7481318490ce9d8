package auth

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/billcycle/internal/identity/domain"
)

// AuthenticateQuery checks a login.
type AuthenticateQuery struct {
	Email    string
	Password string
}

// AuthenticateHandler verifies credentials. It does not issue tokens.
type AuthenticateHandler struct {
	userRepo domain.UserRepository
	hasher   PasswordHasher
}

// NewAuthenticateHandler creates a new AuthenticateHandler.
func NewAuthenticateHandler(userRepo domain.UserRepository, hasher PasswordHasher) *AuthenticateHandler {
	return &AuthenticateHandler{userRepo: userRepo, hasher: hasher}
}

// Handle returns the user when the password matches. Unknown emails and wrong
// passwords both yield domain.ErrInvalidCredentials.
func (h *AuthenticateHandler) Handle(ctx context.Context, query AuthenticateQuery) (*UserDTO, error) {
	email, err := domain.NewEmail(query.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := h.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := h.hasher.Verify(query.Password, user.PasswordHash())
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	if err := user.CanSignIn(); err != nil {
		return nil, err
	}
	return toUserDTO(user), nil
}
