package principals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/dbx"
	"github.com/devlearning/devauth/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Principal) (*models.Principal, error) {
	query := `
		INSERT INTO principals (id, email, password_hash, role, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, p.ID, p.Email, p.PasswordHash, string(p.Role), p.Active).Scan(&p.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Principal, error) {
	query := `
		SELECT id, email, password_hash, role, active, created_at
		FROM principals
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindByIdentifier(ctx context.Context, email string) (*models.Principal, error) {
	query := `
		SELECT id, email, password_hash, role, active, created_at
		FROM principals
		WHERE email = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Principal, error) {
	p := &models.Principal{}
	var role string
	if err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &role, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.Role = models.Role(role)
	return p, nil
}
