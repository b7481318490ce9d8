package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/billcycle/internal/identity/domain"
	sharedApplication "github.com/felixgeelhaar/billcycle/internal/shared/application"
	"github.com/felixgeelhaar/billcycle/internal/shared/infrastructure/outbox"
)

// SignupCommand registers a new user.
type SignupCommand struct {
	Username string
	Email    string
	Password string
}

// SignupHandler handles SignupCommand.
type SignupHandler struct {
	userRepo   domain.UserRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	hasher     PasswordHasher
	now        func() time.Time
}

// NewSignupHandler creates a new SignupHandler.
func NewSignupHandler(
	userRepo domain.UserRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	hasher PasswordHasher,
) *SignupHandler {
	return &SignupHandler{
		userRepo:   userRepo,
		outboxRepo: outboxRepo,
		uow:        uow,
		hasher:     hasher,
		now:        time.Now,
	}
}

// Handle executes SignupCommand.
func (h *SignupHandler) Handle(ctx context.Context, cmd SignupCommand) (*UserDTO, error) {
	username, err := domain.NewUsername(cmd.Username)
	if err != nil {
		return nil, err
	}
	email, err := domain.NewEmail(cmd.Email)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(cmd.Password); err != nil {
		return nil, err
	}

	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user *domain.User
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		taken, err := h.userRepo.ExistsByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrEmailTaken
		}

		taken, err = h.userRepo.ExistsByUsername(txCtx, username)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrUsernameTaken
		}

		user = domain.NewUser(username, email, hash, h.now())
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
