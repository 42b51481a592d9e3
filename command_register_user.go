package authkit

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Role     UserRole `json:"role"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate enforces the registration payload rules before any hashing work.
func (e RegisterUserMessage) Validate() error {
	return validation.Errors{
		"email":    validation.Validate(e.Email, validation.Required, is.Email),
		"password": validation.Validate(e.Password, validation.Required, validation.Length(8, 32)),
		"role":     validation.Validate(e.Role, validation.By(validateRole)),
	}.Filter()
}

func validateRole(value any) error {
	role, _ := value.(string)
	if role == "" || IsValidRole(role) {
		return nil
	}
	return fmt.Errorf("must be one of: %s", strings.Join(GetAllRoles(), ", "))
}

// RegisterUserHandler creates a user inside a transaction, hashing the
// password and translating the storage-reported uniqueness conflict.
type RegisterUserHandler struct {
	repo   RepositoryManager
	hasher PasswordAuthenticator
}

// NewRegisterUserHandler wires the handler; a nil hasher falls back to the
// default Argon2id hasher.
func NewRegisterUserHandler(repo RepositoryManager, hasher PasswordAuthenticator) *RegisterUserHandler {
	if hasher == nil {
		hasher = NewPasswordHasher()
	}
	return &RegisterUserHandler{repo: repo, hasher: hasher}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
			WithTextCode(TextCodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := h.hasher.HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user := &User{
			Email:        event.Email,
			PasswordHash: hash,
			Role:         event.Role,
		}

		if _, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			if IsConflictError(err) {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return nil
}
