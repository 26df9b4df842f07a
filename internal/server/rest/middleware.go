package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/logging"
	"github.com/devlearning/devauth/internal/server/models"
	"github.com/devlearning/devauth/internal/server/services"
)

type ctxKey struct{}

// IdentityFrom returns the caller set by requireAuth.
func IdentityFrom(ctx context.Context) (*services.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*services.Identity)
	return id, ok
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(h, common.BearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, common.BearerPrefix))
	return tok, tok != ""
}

// requireAuth rejects requests without a valid Bearer access token for an
// active principal.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Missing Authorization header")
			return
		}

		id, err := h.sessions.Authenticate(r.Context(), tok)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrTokenExpired):
				respondError(w, http.StatusUnauthorized, ErrCodeTokenExpired, "Token expired")
			case errors.Is(err, common.ErrorInternal):
				respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Internal error")
			default:
				respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid token")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// requireRole must run after requireAuth.
func requireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthenticated")
				return
			}
			for _, role := range roles {
				if id.Principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, http.StatusForbidden, ErrCodeForbidden, "Insufficient permissions")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger logs one line per request.
func requestLogger(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", ClientIP(r),
			)
		})
	}
}
