package rest

import (
	"errors"
	"net/http"

	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/server/models"
	"github.com/devlearning/devauth/internal/server/services"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.principals.Register(r.Context(), req.Email, req.Password, models.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			respondError(w, http.StatusConflict, ErrCodeConflict, "Email already registered")
		case errors.Is(err, common.ErrorValidation):
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid registration data")
		default:
			h.log.Error(r.Context(), "register failed", "error", err)
			respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Registration failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, RegisterResponse{
		ID:      p.ID,
		Email:   p.Email,
		Role:    string(p.Role),
		Message: "Registration successful",
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.sessions.Login(r.Context(), services.LoginRequest{
		Identifier: req.Email,
		Secret:     req.Password,
		ClientIP:   ClientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidCredentials, "Invalid email or password")
			return
		}
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Login failed")
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    common.TokenType,
		ExpiresIn:    h.expiresInMillis(res.AccessExpiresAt),
		Email:        res.Principal.Email,
		Role:         string(res.Principal.Role),
		Message:      "Login successful",
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.sessions.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRefreshTokenExpired):
			respondError(w, http.StatusBadRequest, ErrCodeRefreshExpired, "Refresh token expired, please log in again")
		case errors.Is(err, common.ErrRefreshTokenRevoked):
			respondError(w, http.StatusBadRequest, ErrCodeRefreshRevoked, "Refresh token revoked, please log in again")
		case errors.Is(err, common.ErrorInternal):
			respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Refresh failed")
		default:
			respondError(w, http.StatusBadRequest, ErrCodeInvalidRefreshToken, "Invalid refresh token, please log in again")
		}
		return
	}

	respondJSON(w, http.StatusOK, RefreshResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    common.TokenType,
		ExpiresIn:    h.expiresInMillis(res.AccessExpiresAt),
		Message:      "Token refreshed",
	})
}

// Logout succeeds for unknown tokens too.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Logout failed")
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Logout successful"})
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	n, err := h.sessions.LogoutAll(r.Context(), id.Principal.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Logout failed")
		return
	}
	respondJSON(w, http.StatusOK, RevokeAllResponse{Message: "Logged out from all devices", Revoked: n})
}

// Validate reports the subject and expiry of the presented access token.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	tok, ok := bearerToken(r)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeUnauthorized, "Missing Authorization header")
		return
	}
	id, err := h.sessions.Inspect(r.Context(), tok)
	if err != nil {
		if errors.Is(err, common.ErrorInternal) {
			respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Validation failed")
			return
		}
		code := ErrCodeUnauthorized
		if errors.Is(err, common.ErrTokenExpired) {
			code = ErrCodeTokenExpired
		}
		respondError(w, http.StatusBadRequest, code, "Invalid token")
		return
	}
	respondJSON(w, http.StatusOK, ValidateResponse{
		Subject:   id.Token.Subject,
		Role:      id.Token.Role,
		ExpiresAt: id.Token.ExpiresAt,
		Message:   "Token is valid",
	})
}
