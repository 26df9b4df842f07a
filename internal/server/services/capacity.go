package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/dbx"
	"github.com/devlearning/devauth/internal/server/repositories/repomanager"
	"github.com/devlearning/devauth/internal/timex"
)

// CapacityManager keeps the number of valid refresh tokens per principal
// under a limit by revoking the oldest one before a new token is issued.
//
// The limit is soft: two concurrent logins for the same principal can both
// observe count < max and leave max+1 valid tokens. Eviction is advisory, so
// this is not locked against.
type CapacityManager struct {
	db    *sql.DB
	rm    repomanager.RepositoryManager
	max   int
	clock timex.Clock
}

// NewCapacityManager returns a manager enforcing max valid tokens per
// principal. max <= 0 disables the limit.
func NewCapacityManager(db *sql.DB, rm repomanager.RepositoryManager, max int, clock timex.Clock) *CapacityManager {
	return &CapacityManager{db: db, rm: rm, max: max, clock: clock}
}

// Max is the configured per-principal limit.
func (c *CapacityManager) Max() int { return c.max }

// Enforce drops the principal's expired records and, if the principal is at
// the limit, revokes its oldest valid token. Errors wrap
// common.ErrCapacityEviction.
func (c *CapacityManager) Enforce(ctx context.Context, principalID string) error {
	if c.max <= 0 {
		return nil
	}
	now := c.clock()

	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := c.rm.RefreshTokens(tx)

		if _, err := repo.DeleteExpiredByPrincipal(ctx, principalID, now); err != nil {
			return fmt.Errorf("delete expired: %w", err)
		}

		n, err := repo.CountValid(ctx, principalID, now)
		if err != nil {
			return fmt.Errorf("count valid: %w", err)
		}
		if n < c.max {
			return nil
		}

		valid, err := repo.FindValid(ctx, principalID, now)
		if err != nil {
			return fmt.Errorf("find valid: %w", err)
		}
		if len(valid) == 0 {
			return nil
		}
		if err := repo.RevokeByID(ctx, principalID, valid[0].ID); err != nil {
			return fmt.Errorf("revoke oldest: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrCapacityEviction, err)
	}
	return nil
}
