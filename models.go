package authkit

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role assigned at registration
	RoleUser UserRole = "user"
	// RoleAdmin grants access to admin-gated routes
	RoleAdmin UserRole = "admin"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          UserRole   `bun:"role,notnull,default:'user'" json:"role,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// SubjectID renders the user id the way token subjects carry it.
func (u *User) SubjectID() string {
	return strconv.FormatInt(u.ID, 10)
}

// Summary returns the shareable projection of the user. The password hash
// never leaves the storage layer.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// UserSummary is what login, register, and refresh responses carry.
type UserSummary struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Role      UserRole   `json:"role,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// RefreshToken is the persisted record backing a refresh token. Records are
// never deleted; revocation flips the flag and the row stays for audit.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        int64      `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"-"`
	UserAgent     string     `bun:"user_agent" json:"user_agent,omitempty"`
	IPAddress     string     `bun:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	Revoked       bool       `bun:"revoked,notnull,default:false" json:"revoked,omitempty"`
}

// IsActive reports whether the record can still back a refresh at the given
// instant.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserSummary `json:"user"`
}

// RequestMetadata carries optional per-session request attributes persisted
// alongside refresh token records.
type RequestMetadata struct {
	UserAgent string
	IPAddress string
}
