// Package principals declares the principal directory used to authenticate
// logins and to resolve the owner of a refresh token.
package principals

import (
	"context"

	"github.com/devlearning/devauth/internal/server/models"
)

// Repository looks up and stores principals. Lookups return
// common.ErrorNotFound when nothing matches.
type Repository interface {
	// Create inserts p. A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, p *models.Principal) (*models.Principal, error)
	FindByID(ctx context.Context, id string) (*models.Principal, error)
	// FindByIdentifier finds a principal by its (normalized) email.
	FindByIdentifier(ctx context.Context, email string) (*models.Principal, error)
}
