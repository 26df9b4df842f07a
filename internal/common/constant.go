// Package common contains shared constants and sentinel errors used across
// devauth components.
package common

const (
	// AuthorizationHeaderName carries the access token on inbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// TokenType is reported to clients alongside issued access tokens.
	TokenType = "Bearer"

	// RefreshTokenBytes is the amount of entropy in a refresh token string
	// before hex encoding.
	RefreshTokenBytes = 32
)
