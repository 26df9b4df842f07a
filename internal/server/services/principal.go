package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/mail"

	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/logging"
	"github.com/devlearning/devauth/internal/server/auth"
	"github.com/devlearning/devauth/internal/server/models"
	"github.com/devlearning/devauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// PrincipalService manages principal records.
type PrincipalService struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	hasher auth.Hasher
	log    logging.Logger
}

func NewPrincipalService(db *sql.DB, rm repomanager.RepositoryManager, hasher auth.Hasher, log logging.Logger) *PrincipalService {
	return &PrincipalService{db: db, rm: rm, hasher: hasher, log: log.With("module", "principals")}
}

// Register creates an active principal. An empty role means STUDENT. A taken
// email yields common.ErrorAlreadyExists.
func (s *PrincipalService) Register(ctx context.Context, email, password string, role models.Role) (*models.Principal, error) {
	email = common.NormalizeIdentifier(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", common.ErrorValidation)
	}
	r, ok := models.ParseRole(string(role))
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	p, err := s.rm.Principals(s.db).Create(ctx, &models.Principal{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         r,
		Active:       true,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "principal registered", "principal_id", p.ID, "role", string(p.Role))
	return p, nil
}

// FindByIdentifier looks a principal up by email.
func (s *PrincipalService) FindByIdentifier(ctx context.Context, email string) (*models.Principal, error) {
	return s.rm.Principals(s.db).FindByIdentifier(ctx, common.NormalizeIdentifier(email))
}
