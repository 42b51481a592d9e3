package authkit

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "auth_invalid_credentials"
	TextCodeUnauthenticated    = "auth_unauthenticated"
	TextCodeTokenExpired       = "auth_token_expired"
	TextCodeTokenMalformed     = "auth_token_malformed"
	TextCodeTokenRevoked       = "auth_token_revoked"
	TextCodeForbidden          = "auth_forbidden"
	TextCodeNotFound           = "auth_not_found"
	TextCodeConflict           = "auth_conflict"
	TextCodeBadConfig          = "auth_bad_config"
	TextCodeBadRequest         = "auth_bad_request"
)

// ErrInvalidCredentials is returned for any login failure. Unknown email and
// wrong password are intentionally indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthenticated is returned when a request carries no usable token, or
// the user referenced by a token no longer exists.
var ErrUnauthenticated = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a presented token is past its expiry.
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a token fails signature or structural
// validation.
var ErrTokenMalformed = errors.New("invalid authentication token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrRefreshTokenNotActive is returned when no matching non-revoked,
// unexpired refresh token record exists for the presented token.
var ErrRefreshTokenNotActive = errors.New("refresh token is invalid or no longer active", errors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when an authenticated principal's role does not
// satisfy a route's requirement.
var ErrForbidden = errors.New("insufficient permissions", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrUserNotFound is returned for direct lookups of a user id that does not
// exist.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrMismatchedHashAndPassword is the internal comparison failure; the
// boundary surfaces it as ErrInvalidCredentials.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty plaintext before hashing.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeBadConfig).
	WithCode(errors.CodeBadRequest)

// NewConflictError reports a storage uniqueness conflict, naming the
// offending field.
func NewConflictError(field string) *errors.Error {
	return errors.New(
		fmt.Sprintf("duplicate value for field: %s", field),
		errors.CategoryConflict,
	).
		WithTextCode(TextCodeConflict).
		WithCode(errors.CodeConflict).
		WithMetadata(map[string]any{"field": field})
}

// IsConflictError reports whether err carries the conflict category.
func IsConflictError(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryConflict
}

// IsAuthError reports whether err belongs to the authentication category,
// covering invalid credentials and every token failure mode.
func IsAuthError(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryAuth
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// isUniqueViolation detects the storage-reported uniqueness conflict across
// the drivers we target: Postgres class 23505 and SQLite's constraint text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
