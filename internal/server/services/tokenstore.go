package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/server/models"
	"github.com/devlearning/devauth/internal/server/repositories/repomanager"
	"github.com/devlearning/devauth/internal/timex"
	"github.com/google/uuid"
)

// TokenStore issues and looks up refresh token records.
type TokenStore struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	ttl      time.Duration
	clock    timex.Clock
	generate func() (string, error)
}

// NewTokenStore returns a store whose records live for ttl.
func NewTokenStore(db *sql.DB, rm repomanager.RepositoryManager, ttl time.Duration, clock timex.Clock) *TokenStore {
	return &TokenStore{
		db:    db,
		rm:    rm,
		ttl:   ttl,
		clock: clock,
		generate: func() (string, error) {
			return common.MakeRandHexString(common.RefreshTokenBytes)
		},
	}
}

// Create persists a fresh token for principalID. A collision on the token
// string is retried once with a new value.
func (s *TokenStore) Create(ctx context.Context, principalID, ip, userAgent string) (*models.RefreshToken, error) {
	repo := s.rm.RefreshTokens(s.db)

	for attempt := 0; ; attempt++ {
		value, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("generate refresh token: %w", err)
		}
		now := s.clock().Truncate(time.Microsecond)
		t := &models.RefreshToken{
			ID:          uuid.NewString(),
			PrincipalID: principalID,
			Token:       value,
			ExpiresAt:   now.Add(s.ttl),
			CreatedAt:   now,
			IPAddress:   ip,
			UserAgent:   userAgent,
		}

		err = repo.Create(ctx, t)
		if err == nil {
			return t, nil
		}
		if attempt == 0 && errors.Is(err, common.ErrorAlreadyExists) {
			continue
		}
		return nil, err
	}
}

func (s *TokenStore) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	return s.rm.RefreshTokens(s.db).FindByToken(ctx, token)
}

// FindValid lists the principal's valid tokens, oldest first.
func (s *TokenStore) FindValid(ctx context.Context, principalID string) ([]*models.RefreshToken, error) {
	return s.rm.RefreshTokens(s.db).FindValid(ctx, principalID, s.clock())
}

func (s *TokenStore) CountValid(ctx context.Context, principalID string) (int, error) {
	return s.rm.RefreshTokens(s.db).CountValid(ctx, principalID, s.clock())
}

// Revoke is idempotent.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	return s.rm.RefreshTokens(s.db).Revoke(ctx, token)
}

// RevokeAll revokes every token of the principal in a single statement.
func (s *TokenStore) RevokeAll(ctx context.Context, principalID string) (int64, error) {
	return s.rm.RefreshTokens(s.db).RevokeAll(ctx, principalID)
}

// PurgeExpired deletes every record with expiry before now.
func (s *TokenStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.rm.RefreshTokens(s.db).PurgeExpired(ctx, now)
}
