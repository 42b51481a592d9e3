package authkit

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Config holds auth options. Secrets and expirations are explicit
// construction-time inputs; nothing reads the process environment.
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetAuthScheme() string
}

const (
	// DefaultAccessTokenTTL bounds how long a stolen access token stays usable.
	DefaultAccessTokenTTL = time.Hour
	// DefaultRefreshTokenTTL is the refresh window for an idle session.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// SimpleConfig is a value implementation of Config.
type SimpleConfig struct {
	AccessSigningKey  string
	RefreshSigningKey string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	Issuer            string
	Audience          []string
	ContextKey        string
	AuthScheme        string
}

// Validate will run validation rules. A missing secret, or the same secret
// reused for both token kinds, is a fatal configuration error.
func (c SimpleConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.AccessSigningKey, validation.Required),
		validation.Field(&c.RefreshSigningKey,
			validation.Required,
			validation.By(validateDistinctSecret(c.AccessSigningKey)),
		),
	)
}

func validateDistinctSecret(accessKey string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != "" && s == accessKey {
			return errors.New("refresh signing key must differ from access signing key")
		}
		return nil
	}
}

func (c SimpleConfig) GetAccessSigningKey() string {
	return c.AccessSigningKey
}

func (c SimpleConfig) GetRefreshSigningKey() string {
	return c.RefreshSigningKey
}

// GetAccessTokenTTL falls back to the default only when no TTL was set.
// Zero means unset; a negative value is honored as an already-elapsed
// lifetime.
func (c SimpleConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL == 0 {
		return DefaultAccessTokenTTL
	}
	return c.AccessTokenTTL
}

func (c SimpleConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL == 0 {
		return DefaultRefreshTokenTTL
	}
	return c.RefreshTokenTTL
}

func (c SimpleConfig) GetIssuer() string {
	return c.Issuer
}

func (c SimpleConfig) GetAudience() []string {
	return c.Audience
}

func (c SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}
