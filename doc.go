// Package authkit implements credential authentication and the lifecycle of
// access/refresh token pairs: password verification, dual-secret JWT
// issuance, refresh-token rotation with revocation, logout, and role-based
// authorization.
//
// Access tokens are stateless; possession of a valid, unexpired, correctly
// signed token is sufficient for authorization, which bounds the blast
// radius of a compromise to the access-token TTL. Refresh tokens are
// stateful: in addition to the signature and expiry check, a matching
// non-revoked record must exist in storage, and each refresh consumes the
// presented token while issuing exactly one replacement.
//
// Password hashing is deliberately expensive. Deployments should put rate
// limiting in front of the login and register endpoints; the package does
// not provide it.
package authkit
