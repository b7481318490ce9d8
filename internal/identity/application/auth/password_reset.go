package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/identity/domain"
	sharedApplication "github.com/felixgeelhaar/billcycle/internal/shared/application"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/outbox"
)

// DefaultResetTTL is how long a reset token stays valid.
const DefaultResetTTL = 15 * time.Minute

const resetTokenBytes = 32

// ForgotPasswordCommand requests a reset token.
type ForgotPasswordCommand struct {
	Email string
}

// ForgotPasswordResult carries the token to deliver to the user.
type ForgotPasswordResult struct {
	Token     string
	ExpiresAt time.Time
}

// ForgotPasswordHandler issues reset tokens.
type ForgotPasswordHandler struct {
	userRepo domain.UserRepository
	store    ResetTokenStore
	ttl      time.Duration
	now      func() time.Time
}

// NewForgotPasswordHandler creates a new ForgotPasswordHandler. A
// non-positive ttl takes DefaultResetTTL.
func NewForgotPasswordHandler(userRepo domain.UserRepository, store ResetTokenStore, ttl time.Duration) *ForgotPasswordHandler {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	return &ForgotPasswordHandler{userRepo: userRepo, store: store, ttl: ttl, now: time.Now}
}

// Handle executes ForgotPasswordCommand.
func (h *ForgotPasswordHandler) Handle(ctx context.Context, cmd ForgotPasswordCommand) (*ForgotPasswordResult, error) {
	email, err := domain.NewEmail(cmd.Email)
	if err != nil {
		return nil, err
	}

	user, err := h.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if err := user.CanSignIn(); err != nil {
		return nil, err
	}

	token, err := newResetToken()
	if err != nil {
		return nil, err
	}
	grant := ResetGrant{UserID: user.ID(), Fingerprint: Fingerprint(user.PasswordHash())}
	if err := h.store.Put(ctx, token, grant, h.ttl); err != nil {
		return nil, err
	}

	return &ForgotPasswordResult{Token: token, ExpiresAt: h.now().Add(h.ttl)}, nil
}

// ResetPasswordCommand sets a new password with a reset token.
type ResetPasswordCommand struct {
	Token       string
	NewPassword string
}

// ResetPasswordHandler redeems reset tokens.
type ResetPasswordHandler struct {
	userRepo   domain.UserRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	store      ResetTokenStore
	hasher     PasswordHasher
	now        func() time.Time
}

// NewResetPasswordHandler creates a new ResetPasswordHandler.
func NewResetPasswordHandler(
	userRepo domain.UserRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	store ResetTokenStore,
	hasher PasswordHasher,
) *ResetPasswordHandler {
	return &ResetPasswordHandler{
		userRepo:   userRepo,
		outboxRepo: outboxRepo,
		uow:        uow,
		store:      store,
		hasher:     hasher,
		now:        time.Now,
	}
}

// Handle executes ResetPasswordCommand. The token is spent even when the
// reset is rejected afterwards. A token issued before any later password
// change yields domain.ErrInvalidResetToken.
func (h *ResetPasswordHandler) Handle(ctx context.Context, cmd ResetPasswordCommand) (*UserDTO, error) {
	if err := domain.ValidatePassword(cmd.NewPassword); err != nil {
		return nil, err
	}

	grant, err := h.store.Consume(ctx, cmd.Token)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, domain.ErrInvalidResetToken
	}

	hash, err := h.hasher.Hash(cmd.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user *domain.User
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		user, err = h.userRepo.FindByID(txCtx, grant.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrInvalidResetToken
		}
		current := Fingerprint(user.PasswordHash())
		if subtle.ConstantTimeCompare([]byte(current), []byte(grant.Fingerprint)) != 1 {
			return domain.ErrInvalidResetToken
		}
		if err := user.CanSignIn(); err != nil {
			return err
		}

		user.ChangePassword(hash, h.now())
		if err := h.userRepo.Save(txCtx, user); err != nil {
			return err
		}
		return publishEvents(txCtx, h.outboxRepo, user)
	})
	if err != nil {
		return nil, err
	}

	return toUserDTO(user), nil
}

func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
