package authkit

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RouteGuard wires token verification into the HTTP pipeline. Access tokens
// are verified purely cryptographically; refresh tokens additionally need a
// matching active record in storage.
type RouteGuard struct {
	tokens       TokenService
	repo         RepositoryManager
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

// NewRouteGuard returns a guard bound to the given collaborators.
func NewRouteGuard(tokens TokenService, repo RepositoryManager, cfg Config) *RouteGuard {
	g := &RouteGuard{
		tokens: tokens,
		repo:   repo,
		cfg:    cfg,
		Logger: defLogger{},
	}

	g.ErrorHandler = g.defaultErrHandler

	return g
}

func (g *RouteGuard) WithLogger(logger Logger) *RouteGuard {
	if logger != nil {
		g.Logger = logger
	}
	return g
}

// Protected verifies the bearer access token and attaches the resolved
// Principal to both the router locals and the request context.
func (g *RouteGuard) Protected() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			raw, err := tokenFromHeader(c, g.cfg.GetAuthScheme())
			if err != nil {
				return g.ErrorHandler(c, err)
			}

			claims, err := g.tokens.ValidateAccessToken(raw)
			if err != nil {
				g.Logger.Info("access token rejected", "error", err)
				return g.ErrorHandler(c, err)
			}

			principal := PrincipalFromClaims(claims)

			c.Locals(g.cfg.GetContextKey(), principal)
			c.SetContext(WithPrincipal(c.Context(), principal))

			return next(c)
		}
	}
}

// RefreshVerified verifies the refresh token presented in the request body:
// signature and expiry against the refresh secret, then presence of a
// matching non-revoked, unexpired record. The resolved session is attached
// to the request context before the handler runs.
func (g *RouteGuard) RefreshVerified() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			raw := refreshTokenFromBody(c)
			if raw == "" {
				return g.ErrorHandler(c, ErrUnauthenticated.Clone())
			}

			claims, err := g.tokens.ValidateRefreshToken(raw)
			if err != nil {
				g.Logger.Info("refresh token rejected", "error", err)
				return g.ErrorHandler(c, err)
			}

			record, err := g.repo.RefreshTokens().FindActive(c.Context(), claims.UserID(), raw)
			if err != nil {
				g.Logger.Info("refresh token has no active record", "error", err)
				return g.ErrorHandler(c, err)
			}

			session := &RefreshSession{
				Claims: claims,
				Token:  raw,
				Record: record,
			}

			principal := PrincipalFromClaims(claims)

			c.Locals(g.cfg.GetContextKey(), principal)
			c.SetContext(WithRefreshSession(WithPrincipal(c.Context(), principal), session))

			return next(c)
		}
	}
}

func (g *RouteGuard) defaultErrHandler(c router.Context, err error) error {
	return RenderError(c, err)
}

func tokenFromHeader(c router.Context, authScheme string) (string, error) {
	header := c.GetString("Authorization", "")
	if header == "" {
		return "", ErrUnauthenticated.Clone()
	}

	if authScheme != "" {
		prefix := authScheme + " "
		if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
			return "", ErrTokenMalformed.Clone()
		}
		return strings.TrimSpace(header[len(prefix):]), nil
	}

	return strings.TrimSpace(header), nil
}

type refreshTokenBody struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshTokenFromBody peeks at the raw body so the downstream handler can
// still bind the payload itself.
func refreshTokenFromBody(c router.Context) string {
	body := c.Body()
	if len(body) == 0 {
		return ""
	}

	payload := refreshTokenBody{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	return payload.RefreshToken
}

// RenderError maps a domain error onto a JSON response. Auth failures keep
// their generic messages; anything uncategorized becomes an opaque internal
// error so storage details never leak.
func RenderError(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = errors.CodeInternal
	}

	message := richErr.Message
	if richErr.Category == errors.CategoryInternal {
		message = "An unexpected server error occurred"
	}

	return c.JSON(status, map[string]any{
		"error": map[string]any{
			"message":   message,
			"text_code": richErr.TextCode,
		},
	})
}
