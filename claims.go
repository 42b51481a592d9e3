package authkit

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims is the payload carried by both access and refresh tokens:
// registered claims plus subject id, email, and role.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID      int64    `json:"uid,omitempty"`
	Email    string   `json:"email,omitempty"`
	UserRole UserRole `json:"role,omitempty"`
}

// UserID returns the numeric subject, falling back to the registered
// subject claim when the uid claim is absent.
func (c *TokenClaims) UserID() int64 {
	if c.UID != 0 {
		return c.UID
	}
	id, err := strconv.ParseInt(c.RegisteredClaims.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Role returns the role claim
func (c *TokenClaims) Role() UserRole {
	return c.UserRole
}

// HasRole checks if the claims carry a specific role
func (c *TokenClaims) HasRole(role UserRole) bool {
	return c.UserRole == role
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ensureTokenID assigns a unique jti so every issued token maps to a
// distinct signed string even when claims otherwise coincide.
func ensureTokenID(rc *jwt.RegisteredClaims) {
	if rc.ID == "" {
		rc.ID = uuid.NewString()
	}
}

// Principal is the resolved identity attached to an authenticated request.
// It is the single shape produced by token verification; nothing downstream
// needs to unwrap alternative layouts.
type Principal struct {
	UserID int64    `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
}

// PrincipalFromClaims normalizes verified token claims into a Principal.
func PrincipalFromClaims(claims *TokenClaims) *Principal {
	if claims == nil {
		return nil
	}
	return &Principal{
		UserID: claims.UserID(),
		Email:  claims.Email,
		Role:   claims.UserRole,
	}
}

// HasRole checks if the principal carries a specific role
func (p *Principal) HasRole(role UserRole) bool {
	return p != nil && p.Role == role
}
