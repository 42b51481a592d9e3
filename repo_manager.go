package authkit

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories plus transaction scoping. The
// storage layer is the sole arbiter of atomicity for refresh-token state.
type RepositoryManager interface {
	Users() Users
	RefreshTokens() RefreshTokens
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error
}

type repoManager struct {
	db            *bun.DB
	users         Users
	refreshTokens RefreshTokens
}

// NewRepositoryManager creates the bun-backed repository manager.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &repoManager{
		db:            db,
		users:         NewUsersRepository(db),
		refreshTokens: NewRefreshTokensRepository(db),
	}
}

func (m *repoManager) Users() Users {
	return m.users
}

func (m *repoManager) RefreshTokens() RefreshTokens {
	return m.refreshTokens
}

func (m *repoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	return m.db.RunInTx(ctx, opts, fn)
}
