package authkit

import (
	"github.com/goliatone/go-router"
)

// Authorize evaluates whether the principal's role satisfies the route's
// declared requirement. An empty requirement allows anyone, including
// absent principals. An unknown role on an otherwise valid principal is a
// denial, not a crash.
func Authorize(principal *Principal, required ...UserRole) error {
	if len(required) == 0 {
		return nil
	}

	if principal == nil {
		return ErrUnauthenticated
	}

	if !IsValidRole(principal.Role) {
		return forbiddenError(required)
	}

	for _, role := range required {
		if principal.Role == role {
			return nil
		}
	}

	return forbiddenError(required)
}

// forbiddenError records the acceptable roles in metadata for diagnostics;
// the rendered message stays generic.
func forbiddenError(required []UserRole) error {
	clone := ErrForbidden.Clone()
	if clone == nil {
		return ErrForbidden
	}
	return clone.WithMetadata(map[string]any{
		"required_roles": append([]UserRole(nil), required...),
	})
}

// RequireRoles returns middleware that runs the role check against the
// principal resolved by a preceding authentication middleware. The pipeline
// is explicit: authenticate, authorize, handler.
func RequireRoles(required ...UserRole) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			principal, _ := PrincipalFromContext(c.Context())
			if err := Authorize(principal, required...); err != nil {
				return err
			}
			return next(c)
		}
	}
}
