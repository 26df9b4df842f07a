package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/server/auth"
	"github.com/devlearning/devauth/internal/server/models"
	"github.com/devlearning/devauth/internal/server/repositories/repomanager"
)

// dummySecret is hashed once so that logins for unknown identifiers still
// pay for a full hash comparison.
const dummySecret = "devauth-timing-equalizer"

// CredentialVerifier checks an identifier and secret against the stored hash.
type CredentialVerifier struct {
	db        *sql.DB
	rm        repomanager.RepositoryManager
	hasher    auth.Hasher
	dummyHash []byte
}

// NewCredentialVerifier builds a verifier. It hashes a dummy secret up front,
// so construction costs one hash.
func NewCredentialVerifier(db *sql.DB, rm repomanager.RepositoryManager, hasher auth.Hasher) (*CredentialVerifier, error) {
	dummy, err := hasher.Hash(dummySecret)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &CredentialVerifier{db: db, rm: rm, hasher: hasher, dummyHash: dummy}, nil
}

// Verify returns the principal when identifier exists, is active and secret
// matches. Failures are common.ErrorNotFound, common.ErrPrincipalInactive or
// common.ErrBadSecret; anything else is a storage error.
func (v *CredentialVerifier) Verify(ctx context.Context, identifier, secret string) (*models.Principal, error) {
	p, err := v.rm.Principals(v.db).FindByIdentifier(ctx, common.NormalizeIdentifier(identifier))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = v.hasher.Compare(v.dummyHash, secret)
			return nil, common.ErrorNotFound
		}
		return nil, err
	}

	cmpErr := v.hasher.Compare(p.PasswordHash, secret)
	if !p.Active {
		return nil, common.ErrPrincipalInactive
	}
	if cmpErr != nil {
		return nil, common.ErrBadSecret
	}
	return p, nil
}

// isCredentialFailure reports whether err is one of the failure kinds Verify
// uses for a rejected login, as opposed to a storage error.
func isCredentialFailure(err error) bool {
	return errors.Is(err, common.ErrorNotFound) ||
		errors.Is(err, common.ErrPrincipalInactive) ||
		errors.Is(err, common.ErrBadSecret)
}
