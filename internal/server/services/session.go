// Package services holds the server's business logic: credential checks,
// session issuance and rotation, revocation and principal registration.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/logging"
	"github.com/devlearning/devauth/internal/server/auth"
	"github.com/devlearning/devauth/internal/server/models"
	"github.com/devlearning/devauth/internal/server/repositories/repomanager"
	"github.com/devlearning/devauth/internal/timex"
)

// LoginRequest is what a client submits to start a session.
type LoginRequest struct {
	Identifier string
	Secret     string
	ClientIP   string
	UserAgent  string
}

// PrincipalSummary is the part of a principal returned to clients.
type PrincipalSummary struct {
	ID    string
	Email string
	Role  models.Role
}

// LoginResult carries both tokens of a new session.
type LoginResult struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	Principal        PrincipalSummary
}

// RotateResult carries a new access token. RefreshToken is the token that
// was presented: it is not rotated.
type RotateResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
	Principal       PrincipalSummary
}

// SessionInfo describes one valid refresh token without exposing it.
type SessionInfo struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
}

// TokenStats summarizes a principal's refresh token records.
type TokenStats struct {
	Active     int
	Total      int
	Expired    int
	Revoked    int
	MaxAllowed int
}

// Identity is an authenticated caller: the verified token plus the
// principal it names.
type Identity struct {
	Principal *models.Principal
	Token     *auth.TokenInfo
}

// SessionService issues, rotates and revokes sessions.
type SessionService struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	codec    *auth.Codec
	verifier *CredentialVerifier
	store    *TokenStore
	capacity *CapacityManager
	clock    timex.Clock
	log      logging.Logger
}

// NewSessionService wires the session flows together.
func NewSessionService(
	db *sql.DB,
	rm repomanager.RepositoryManager,
	codec *auth.Codec,
	verifier *CredentialVerifier,
	store *TokenStore,
	capacity *CapacityManager,
	clock timex.Clock,
	log logging.Logger,
) *SessionService {
	return &SessionService{
		db:       db,
		rm:       rm,
		codec:    codec,
		verifier: verifier,
		store:    store,
		capacity: capacity,
		clock:    clock,
		log:      log.With("module", "sessions"),
	}
}

// Login verifies credentials and opens a session. Any credential problem is
// reported as common.ErrInvalidCredentials. A storage failure yields
// common.ErrorInternal and no tokens.
//
// The cap is enforced in its own transaction before the new token is
// written, so a failed create can still leave the oldest session revoked.
func (s *SessionService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	p, err := s.verifier.Verify(ctx, req.Identifier, req.Secret)
	if err != nil {
		if isCredentialFailure(err) {
			s.log.Info(ctx, "login rejected", "reason", err.Error(), "ip", req.ClientIP)
			return nil, common.ErrInvalidCredentials
		}
		s.log.Error(ctx, "credential lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	access, accessExp, err := s.codec.Issue(p.Email, string(p.Role))
	if err != nil {
		s.log.Error(ctx, "mint access token failed", "error", err)
		return nil, common.ErrorInternal
	}

	if err := s.capacity.Enforce(ctx, p.ID); err != nil {
		s.log.Warn(ctx, "refresh token eviction failed", "principal_id", p.ID, "error", err)
	}

	rt, err := s.store.Create(ctx, p.ID, req.ClientIP, req.UserAgent)
	if err != nil {
		s.log.Error(ctx, "create refresh token failed", "principal_id", p.ID, "error", err)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "session opened", "principal_id", p.ID, "session_id", rt.ID, "ip", req.ClientIP)
	return &LoginResult{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     rt.Token,
		RefreshExpiresAt: rt.ExpiresAt,
		Principal:        summarize(p),
	}, nil
}

// Rotate exchanges a refresh token for a new access token. Expired tokens
// are deleted; revoked ones are kept for auditing.
func (s *SessionService) Rotate(ctx context.Context, refreshToken string) (*RotateResult, error) {
	rt, err := s.store.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		s.log.Error(ctx, "refresh token lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if rt.IsExpired(s.clock()) {
		if err := s.rm.RefreshTokens(s.db).Delete(ctx, rt.Token); err != nil {
			s.log.Warn(ctx, "delete expired refresh token failed", "session_id", rt.ID, "error", err)
		}
		return nil, common.ErrRefreshTokenExpired
	}
	if rt.Revoked {
		s.log.Warn(ctx, "revoked refresh token presented", "session_id", rt.ID, "principal_id", rt.PrincipalID)
		return nil, common.ErrRefreshTokenRevoked
	}

	p, err := s.rm.Principals(s.db).FindByID(ctx, rt.PrincipalID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrPrincipalNotFound
		}
		s.log.Error(ctx, "principal lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	access, accessExp, err := s.codec.Issue(p.Email, string(p.Role))
	if err != nil {
		s.log.Error(ctx, "mint access token failed", "error", err)
		return nil, common.ErrorInternal
	}
	return &RotateResult{
		AccessToken:     access,
		AccessExpiresAt: accessExp,
		RefreshToken:    rt.Token,
		Principal:       summarize(p),
	}, nil
}

// Logout revokes a single refresh token. Unknown tokens succeed.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.store.Revoke(ctx, refreshToken); err != nil {
		s.log.Error(ctx, "revoke refresh token failed", "error", err)
		return common.ErrorInternal
	}
	return nil
}

// LogoutAll revokes every refresh token of the principal.
func (s *SessionService) LogoutAll(ctx context.Context, principalID string) (int64, error) {
	n, err := s.store.RevokeAll(ctx, principalID)
	if err != nil {
		s.log.Error(ctx, "revoke all refresh tokens failed", "principal_id", principalID, "error", err)
		return 0, common.ErrorInternal
	}
	s.log.Info(ctx, "all sessions revoked", "principal_id", principalID, "count", n)
	return n, nil
}

// RevokeSession revokes one of the principal's own sessions by id. Ids the
// principal does not own are ignored.
func (s *SessionService) RevokeSession(ctx context.Context, principalID, sessionID string) error {
	if err := s.rm.RefreshTokens(s.db).RevokeByID(ctx, principalID, sessionID); err != nil {
		s.log.Error(ctx, "revoke session failed", "principal_id", principalID, "session_id", sessionID, "error", err)
		return common.ErrorInternal
	}
	return nil
}

// ActiveSessions lists the principal's valid sessions, oldest first.
func (s *SessionService) ActiveSessions(ctx context.Context, principalID string) ([]SessionInfo, error) {
	tokens, err := s.store.FindValid(ctx, principalID)
	if err != nil {
		s.log.Error(ctx, "list sessions failed", "principal_id", principalID, "error", err)
		return nil, common.ErrorInternal
	}
	out := make([]SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, SessionInfo{
			ID:        t.ID,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
			IPAddress: t.IPAddress,
			UserAgent: t.UserAgent,
		})
	}
	return out, nil
}

// Stats counts the principal's records by state. A record can be both
// expired and revoked.
func (s *SessionService) Stats(ctx context.Context, principalID string) (*TokenStats, error) {
	tokens, err := s.rm.RefreshTokens(s.db).FindByPrincipal(ctx, principalID)
	if err != nil {
		s.log.Error(ctx, "token stats failed", "principal_id", principalID, "error", err)
		return nil, common.ErrorInternal
	}

	now := s.clock()
	st := &TokenStats{Total: len(tokens), MaxAllowed: s.capacity.Max()}
	for _, t := range tokens {
		if t.IsValid(now) {
			st.Active++
		}
		if t.IsExpired(now) {
			st.Expired++
		}
		if t.Revoked {
			st.Revoked++
		}
	}
	return st, nil
}

// Authenticate verifies an access token and resolves the active principal
// it was issued for.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	info, err := s.codec.Verify(accessToken)
	if err != nil {
		return nil, err
	}

	p, err := s.rm.Principals(s.db).FindByIdentifier(ctx, info.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrPrincipalNotFound
		}
		s.log.Error(ctx, "principal lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	if !p.Active {
		return nil, common.ErrPrincipalInactive
	}
	return &Identity{Principal: p, Token: info}, nil
}

// Inspect is Authenticate for diagnostic callers: it reports who a token
// belongs to and when it expires.
func (s *SessionService) Inspect(ctx context.Context, accessToken string) (*Identity, error) {
	return s.Authenticate(ctx, accessToken)
}

func summarize(p *models.Principal) PrincipalSummary {
	return PrincipalSummary{ID: p.ID, Email: p.Email, Role: p.Role}
}
