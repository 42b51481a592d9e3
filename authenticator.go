package authkit

import (
	"context"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

// Auther orchestrates login, registration, refresh rotation, and logout
// over the storage, hashing, and token collaborators.
type Auther struct {
	repo         RepositoryManager
	tokens       TokenService
	hasher       PasswordAuthenticator
	logger       Logger
	activitySink ActivitySink
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator. Token-service construction
// fails on missing or shared signing secrets; treat that as fatal.
func NewAuthenticator(repo RepositoryManager, cfg Config) (*Auther, error) {
	tokens, err := NewTokenService(cfg, nil)
	if err != nil {
		return nil, err
	}

	return &Auther{
		repo:         repo,
		tokens:       tokens,
		hasher:       NewPasswordHasher(),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenService sets a custom token service.
func (s *Auther) WithTokenService(tokens TokenService) *Auther {
	if tokens != nil {
		s.tokens = tokens
	}
	return s
}

// WithPasswordHasher sets a custom password hasher.
func (s *Auther) WithPasswordHasher(hasher PasswordAuthenticator) *Auther {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies the credentials and issues a fresh token pair, persisting
// the refresh side. Unknown email and wrong password are indistinguishable
// to the caller.
func (s *Auther) Login(ctx context.Context, email, password string, meta RequestMetadata) (*TokenPair, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, 0, map[string]any{
				"email": email,
			})
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("Login user lookup error", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user")
	}

	if err := s.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromUser(user), user.ID, map[string]any{
			"email": email,
		})
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromUser(user), user.ID, map[string]any{
		"email": email,
	})

	return pair, nil
}

// Register creates a user from an email and password. The password policy
// is enforced before any hashing or storage call.
func (s *Auther) Register(ctx context.Context, email, password string) (*UserSummary, error) {
	if err := validateRegistration(email, password); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid registration payload").
			WithCode(errors.CodeBadRequest)
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
	}

	if user, err = s.repo.Users().Create(ctx, user); err != nil {
		if IsConflictError(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not create user")
	}

	s.emitAuthEvent(ctx, ActivityEventUserRegistered, s.actorFromUser(user), user.ID, map[string]any{
		"email": user.Email,
	})

	summary := user.Summary()
	return &summary, nil
}

// Refresh rotates a verified refresh token: the old record is consumed
// atomically before anything new is issued, so a concurrent refresh of the
// same token fails rather than forking the session.
func (s *Auther) Refresh(ctx context.Context, userID int64, token string, meta RequestMetadata) (*TokenPair, error) {
	user, err := s.repo.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			// Issued to a user that has since been deleted.
			s.emitAuthEvent(ctx, ActivityEventRefreshRejected, ActorRef{Type: "unknown"}, userID, nil)
			return nil, ErrUnauthenticated
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user")
	}

	if err := s.repo.RefreshTokens().Consume(ctx, userID, token); err != nil {
		if IsAuthError(err) {
			s.emitAuthEvent(ctx, ActivityEventRefreshRejected, s.actorFromUser(user), userID, nil)
			return nil, err
		}
		return nil, err
	}

	pair, err := s.issuePair(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventTokenRefreshed, s.actorFromUser(user), user.ID, nil)

	return pair, nil
}

// Logout revokes the presented refresh token after confirming it is a
// correctly signed artifact belonging to the calling user. Retrying a
// logout observes a rejection, not a silent success.
func (s *Auther) Logout(ctx context.Context, userID int64, token string) error {
	claims, err := s.tokens.ValidateRefreshToken(token)
	if err != nil {
		return ErrUnauthenticated
	}

	if claims.UserID() != userID {
		// Token belongs to someone else; leave their session alone.
		return ErrUnauthenticated
	}

	if err := s.repo.RefreshTokens().Consume(ctx, userID, token); err != nil {
		if IsAuthError(err) {
			return ErrUnauthenticated
		}
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, ActorRef{ID: strconv.FormatInt(userID, 10), Type: "user"}, userID, nil)

	return nil
}

func (s *Auther) issuePair(ctx context.Context, user *User, meta RequestMetadata) (*TokenPair, error) {
	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		s.logger.Error("failed to issue access token", "error", err)
		return nil, err
	}

	refreshToken, expiresAt, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		s.logger.Error("failed to issue refresh token", "error", err)
		return nil, err
	}

	if _, err := s.repo.RefreshTokens().Create(ctx, user.ID, refreshToken, meta, expiresAt); err != nil {
		s.logger.Error("failed to persist refresh token", "error", err)
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Summary(),
	}, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID int64, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.SubjectID(),
		Type: "user",
	}
}

func validateRegistration(email, password string) error {
	return validation.Errors{
		"email": validation.Validate(email,
			validation.Required,
			is.Email,
		),
		"password": validation.Validate(password,
			validation.Required,
			validation.Length(8, 32),
		),
	}.Filter()
}
