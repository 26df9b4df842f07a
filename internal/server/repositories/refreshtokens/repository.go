// Package refreshtokens declares the server-side store of issued refresh
// tokens and its PostgreSQL implementation.
package refreshtokens

import (
	"context"
	"time"

	"github.com/devlearning/devauth/internal/server/models"
)

// Repository persists refresh token records. A record is valid while it is
// not revoked and now < ExpiresAt.
type Repository interface {
	// Create inserts t. A duplicate token string yields common.ErrorAlreadyExists.
	Create(ctx context.Context, t *models.RefreshToken) error

	// FindByToken returns common.ErrorNotFound when the token is absent.
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	FindByID(ctx context.Context, id string) (*models.RefreshToken, error)

	// FindValid returns the principal's valid records, oldest first.
	FindValid(ctx context.Context, principalID string, now time.Time) ([]*models.RefreshToken, error)
	// FindByPrincipal returns every record of the principal, oldest first.
	FindByPrincipal(ctx context.Context, principalID string) ([]*models.RefreshToken, error)
	CountValid(ctx context.Context, principalID string, now time.Time) (int, error)

	// Revoke marks the token revoked. Unknown tokens are not an error.
	Revoke(ctx context.Context, token string) error
	// RevokeByID revokes the record only if principalID owns it.
	RevokeByID(ctx context.Context, principalID, id string) error
	// RevokeAll revokes every record of the principal in one statement and
	// reports how many rows changed.
	RevokeAll(ctx context.Context, principalID string) (int64, error)

	// Delete removes a record by token string. Unknown tokens are not an error.
	Delete(ctx context.Context, token string) error
	// DeleteExpiredByPrincipal removes the principal's records with
	// ExpiresAt < now.
	DeleteExpiredByPrincipal(ctx context.Context, principalID string, now time.Time) (int64, error)
	// PurgeExpired removes every record with ExpiresAt < now, revoked or not.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
