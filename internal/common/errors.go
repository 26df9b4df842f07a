// Package common defines shared constants and sentinel errors used across
// the server and the operator CLI. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Credential verification errors. Never returned to clients as-is.
	ErrPrincipalInactive  = errors.New("principal inactive")
	ErrBadSecret          = errors.New("bad secret")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Access token errors.
	ErrMalformedToken  = errors.New("malformed token")
	ErrBadSignature    = errors.New("bad token signature")
	ErrTokenExpired    = errors.New("token expired")
	ErrWeakSigningKey  = errors.New("signing key too short")
	ErrInvalidTokenTTL = errors.New("token ttl must be positive")

	// Refresh token lifecycle errors.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
	ErrPrincipalNotFound   = errors.New("principal not found")

	// ErrCapacityEviction wraps failures of the per-principal cap check.
	// It is logged and never blocks a login.
	ErrCapacityEviction = errors.New("refresh token capacity eviction failed")
)
