package rest

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func (h *Handler) MyTokens(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	sessions, err := h.sessions.ActiveSessions(r.Context(), id.Principal.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Could not list sessions")
		return
	}

	resp := SessionsResponse{Sessions: make([]SessionDTO, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, SessionDTO{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			IPAddress: s.IPAddress,
			UserAgent: s.UserAgent,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// RevokeToken is idempotent: an id that is not a UUID names no session and
// succeeds without touching the store.
func (h *Handler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	sessionID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSON(w, http.StatusOK, MessageResponse{Message: "Session revoked"})
		return
	}
	if err := h.sessions.RevokeSession(r.Context(), id.Principal.ID, sessionID.String()); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Could not revoke session")
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Session revoked"})
}

func (h *Handler) RevokeAllTokens(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	n, err := h.sessions.LogoutAll(r.Context(), id.Principal.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Could not revoke sessions")
		return
	}
	respondJSON(w, http.StatusOK, RevokeAllResponse{Message: "All sessions revoked", Revoked: n})
}

func (h *Handler) TokenStats(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	st, err := h.sessions.Stats(r.Context(), id.Principal.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Could not compute stats")
		return
	}
	respondJSON(w, http.StatusOK, StatsResponse{
		ActiveTokens:     st.Active,
		TotalTokens:      st.Total,
		ExpiredTokens:    st.Expired,
		RevokedTokens:    st.Revoked,
		MaxTokensAllowed: st.MaxAllowed,
	})
}

// AdminRevokeTokens revokes every session of the principal named in the path.
func (h *Handler) AdminRevokeTokens(w http.ResponseWriter, r *http.Request) {
	admin, _ := IdentityFrom(r.Context())
	parsed, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid principal id")
		return
	}
	target := parsed.String()
	n, err := h.sessions.LogoutAll(r.Context(), target)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Could not revoke sessions")
		return
	}
	h.log.Info(r.Context(), "admin revoked sessions",
		"admin_id", admin.Principal.ID, "principal_id", target, "count", n)
	respondJSON(w, http.StatusOK, RevokeAllResponse{Message: "All sessions revoked", Revoked: n})
}
