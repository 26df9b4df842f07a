package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/dbx"
	"github.com/devlearning/devauth/internal/server/models"
)

const selectColumns = `id, principal_id, token, expires_at, revoked, created_at, ip_address, user_agent`

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, principal_id, token, expires_at, revoked, created_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.PrincipalID, t.Token, t.ExpiresAt, t.Revoked, t.CreatedAt, t.IPAddress, t.UserAgent)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `SELECT ` + selectColumns + `
		FROM refresh_tokens
		WHERE token = $1
	`
	return scanOne(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.RefreshToken, error) {
	query := `SELECT ` + selectColumns + `
		FROM refresh_tokens
		WHERE id = $1
	`
	return scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindValid(ctx context.Context, principalID string, now time.Time) ([]*models.RefreshToken, error) {
	query := `SELECT ` + selectColumns + `
		FROM refresh_tokens
		WHERE principal_id = $1 AND revoked = FALSE AND expires_at > $2
		ORDER BY created_at, id
	`
	return r.queryMany(ctx, query, principalID, now)
}

func (r *PostgresRepository) FindByPrincipal(ctx context.Context, principalID string) ([]*models.RefreshToken, error) {
	query := `SELECT ` + selectColumns + `
		FROM refresh_tokens
		WHERE principal_id = $1
		ORDER BY created_at, id
	`
	return r.queryMany(ctx, query, principalID)
}

func (r *PostgresRepository) CountValid(ctx context.Context, principalID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM refresh_tokens
		WHERE principal_id = $1 AND revoked = FALSE AND expires_at > $2
	`
	var n int
	if err := r.db.QueryRowContext(ctx, query, principalID, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, token string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE token = $1
	`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RevokeByID(ctx context.Context, principalID, id string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE id = $1 AND principal_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, id, principalID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RevokeAll(ctx context.Context, principalID string) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE principal_id = $1 AND revoked = FALSE
	`
	return r.execAffected(ctx, query, principalID)
}

func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE token = $1
	`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpiredByPrincipal(ctx context.Context, principalID string, now time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE principal_id = $1 AND expires_at < $2
	`
	return r.execAffected(ctx, query, principalID, now)
}

func (r *PostgresRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
	`
	return r.execAffected(ctx, query, now)
}

func (r *PostgresRepository) execAffected(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.RefreshToken
	for rows.Next() {
		t := &models.RefreshToken{}
		if err := rows.Scan(&t.ID, &t.PrincipalID, &t.Token, &t.ExpiresAt, &t.Revoked, &t.CreatedAt, &t.IPAddress, &t.UserAgent); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func scanOne(row *sql.Row) (*models.RefreshToken, error) {
	t := &models.RefreshToken{}
	if err := row.Scan(&t.ID, &t.PrincipalID, &t.Token, &t.ExpiresAt, &t.Revoked, &t.CreatedAt, &t.IPAddress, &t.UserAgent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
