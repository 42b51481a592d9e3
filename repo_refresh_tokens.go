package authkit

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokens persists, looks up, and revokes refresh-token records.
// Records are append-and-flip: created on login/refresh, mutated only by
// setting revoked, never deleted.
type RefreshTokens interface {
	Create(ctx context.Context, userID int64, token string, meta RequestMetadata, expiresAt time.Time) (*RefreshToken, error)
	CreateTx(ctx context.Context, tx bun.IDB, userID int64, token string, meta RequestMetadata, expiresAt time.Time) (*RefreshToken, error)

	// FindActive matches userID + exact token + revoked=false +
	// expires_at in the future. A miss returns ErrRefreshTokenNotActive.
	FindActive(ctx context.Context, userID int64, token string) (*RefreshToken, error)
	FindActiveTx(ctx context.Context, tx bun.IDB, userID int64, token string) (*RefreshToken, error)

	// Revoke marks matching non-revoked records revoked. Idempotent: a
	// no-op when nothing matches.
	Revoke(ctx context.Context, userID int64, token string) error
	RevokeTx(ctx context.Context, tx bun.IDB, userID int64, token string) error
	RevokeByID(ctx context.Context, id uuid.UUID) error

	// Consume is the find-active-and-revoke conditional update. It succeeds
	// only when exactly one currently-active record was flipped, so two
	// concurrent refreshes presenting the same token produce exactly one
	// winner.
	Consume(ctx context.Context, userID int64, token string) error
	ConsumeTx(ctx context.Context, tx bun.IDB, userID int64, token string) error
}

type refreshTokens struct {
	repository.Repository[*RefreshToken]
	db *bun.DB
}

var _ RefreshTokens = (*refreshTokens)(nil)

// NewRefreshTokensRepository creates the bun-backed refresh token repository.
func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	repo := repository.NewRepository[*RefreshToken](db, repository.ModelHandlers[*RefreshToken]{
		NewRecord: func() *RefreshToken { return &RefreshToken{} },
		GetID: func(t *RefreshToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *RefreshToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &refreshTokens{
		Repository: repo,
		db:         db,
	}
}

func (a *refreshTokens) Create(ctx context.Context, userID int64, token string, meta RequestMetadata, expiresAt time.Time) (*RefreshToken, error) {
	return a.CreateTx(ctx, a.db, userID, token, meta, expiresAt)
}

func (a *refreshTokens) CreateTx(ctx context.Context, tx bun.IDB, userID int64, token string, meta RequestMetadata, expiresAt time.Time) (*RefreshToken, error) {
	record := &RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		ExpiresAt: expiresAt,
	}

	record, err := a.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not persist refresh token")
	}

	return record, nil
}

func (a *refreshTokens) FindActive(ctx context.Context, userID int64, token string) (*RefreshToken, error) {
	return a.FindActiveTx(ctx, a.db, userID, token)
}

func (a *refreshTokens) FindActiveTx(ctx context.Context, tx bun.IDB, userID int64, token string) (*RefreshToken, error) {
	record := &RefreshToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.revoked = ?", false).
		Where("?TableAlias.expires_at > ?", time.Now()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenNotActive
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up refresh token")
	}

	return record, nil
}

func (a *refreshTokens) Revoke(ctx context.Context, userID int64, token string) error {
	return a.RevokeTx(ctx, a.db, userID, token)
}

func (a *refreshTokens) RevokeTx(ctx context.Context, tx bun.IDB, userID int64, token string) error {
	_, err := tx.NewUpdate().
		Model((*RefreshToken)(nil)).
		Set("revoked = ?", true).
		Where("user_id = ?", userID).
		Where("token = ?", token).
		Where("revoked = ?", false).
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not revoke refresh token")
	}

	return nil
}

func (a *refreshTokens) RevokeByID(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewUpdate().
		Model((*RefreshToken)(nil)).
		Set("revoked = ?", true).
		Where("id = ?", id).
		Where("revoked = ?", false).
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not revoke refresh token")
	}

	return nil
}

func (a *refreshTokens) Consume(ctx context.Context, userID int64, token string) error {
	return a.ConsumeTx(ctx, a.db, userID, token)
}

func (a *refreshTokens) ConsumeTx(ctx context.Context, tx bun.IDB, userID int64, token string) error {
	res, err := tx.NewUpdate().
		Model((*RefreshToken)(nil)).
		Set("revoked = ?", true).
		Where("user_id = ?", userID).
		Where("token = ?", token).
		Where("revoked = ?", false).
		Where("expires_at > ?", time.Now()).
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not consume refresh token")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not read consume result")
	}

	// Zero rows means the token was already revoked, expired, or never
	// existed; concurrent losers land here.
	if rows != 1 {
		return ErrRefreshTokenNotActive
	}

	return nil
}
