// Package rest exposes the session flows over JSON/HTTP.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/devlearning/devauth/internal/logging"
	"github.com/devlearning/devauth/internal/server/models"
	"github.com/devlearning/devauth/internal/server/services"
	"github.com/devlearning/devauth/internal/timex"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// Sessions is the part of services.SessionService the REST layer calls.
type Sessions interface {
	Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
	Rotate(ctx context.Context, refreshToken string) (*services.RotateResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, principalID string) (int64, error)
	RevokeSession(ctx context.Context, principalID, sessionID string) error
	ActiveSessions(ctx context.Context, principalID string) ([]services.SessionInfo, error)
	Stats(ctx context.Context, principalID string) (*services.TokenStats, error)
	Authenticate(ctx context.Context, accessToken string) (*services.Identity, error)
	Inspect(ctx context.Context, accessToken string) (*services.Identity, error)
}

// Principals is the part of services.PrincipalService the REST layer calls.
type Principals interface {
	Register(ctx context.Context, email, password string, role models.Role) (*models.Principal, error)
}

// HealthCheck reports whether the backing store is reachable.
type HealthCheck func(ctx context.Context) error

// Handler serves every REST endpoint.
type Handler struct {
	sessions   Sessions
	principals Principals
	health     HealthCheck
	clock      timex.Clock
	log        logging.Logger
}

func NewHandler(sessions Sessions, principals Principals, health HealthCheck, clock timex.Clock, log logging.Logger) *Handler {
	return &Handler{
		sessions:   sessions,
		principals: principals,
		health:     health,
		clock:      clock,
		log:        log.With("module", "rest"),
	}
}

func (h *Handler) expiresInMillis(exp time.Time) int64 {
	ms := exp.Sub(h.clock()).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

// decode reads a JSON body into dst and validates it. On failure the error
// reply has already been written.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidPayload, "Invalid request payload")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		msg := "Invalid request"
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msg = "Invalid field: " + verrs[0].Field()
		}
		respondError(w, http.StatusBadRequest, ErrCodeValidation, msg)
		return false
	}
	return true
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.log.Error(r.Context(), "health check failed", "error", err)
			respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Database unreachable")
			return
		}
	}
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
