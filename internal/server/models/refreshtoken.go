package models

import "time"

// RefreshToken is a server-tracked session credential.
type RefreshToken struct {
	ID          string
	PrincipalID string
	Token       string
	ExpiresAt   time.Time
	Revoked     bool
	CreatedAt   time.Time
	IPAddress   string
	UserAgent   string
}

// IsExpired reports whether now is at or past the expiry.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsValid reports whether the token can still be used: not revoked and not
// expired.
func (t *RefreshToken) IsValid(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}
