package authkit

import (
	"context"

	"github.com/goliatone/go-router"
)

var principalCtxKey = &contextKey{"principal"}
var refreshCtxKey = &contextKey{"refresh"}

type contextKey struct {
	name string
}

// WithPrincipal sets the Principal in the given context
func WithPrincipal(r context.Context, principal *Principal) context.Context {
	return context.WithValue(r, principalCtxKey, principal)
}

// PrincipalFromContext finds the principal from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok
}

// RefreshSession ties the verified refresh-token artifacts together: the
// parsed claims, the presented raw token, and the matching active record.
type RefreshSession struct {
	Claims *TokenClaims
	Token  string
	Record *RefreshToken
}

// WithRefreshSession sets the RefreshSession in the given context
func WithRefreshSession(r context.Context, session *RefreshSession) context.Context {
	return context.WithValue(r, refreshCtxKey, session)
}

// RefreshSessionFromContext finds the refresh session from the context.
func RefreshSessionFromContext(ctx context.Context) (*RefreshSession, bool) {
	raw, ok := ctx.Value(refreshCtxKey).(*RefreshSession)
	return raw, ok
}

// GetRouterPrincipal extracts the Principal from the router context locals.
func GetRouterPrincipal(ctx router.Context, key string) (*Principal, bool) {
	if key == "" {
		key = "user"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	principal, ok := raw.(*Principal)
	return principal, ok
}
