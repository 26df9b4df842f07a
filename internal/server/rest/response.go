package rest

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in ErrorResponse.Code.
const (
	ErrCodeInvalidPayload      = "invalid_payload"
	ErrCodeValidation          = "validation_error"
	ErrCodeUnauthorized        = "unauthorized"
	ErrCodeForbidden           = "forbidden"
	ErrCodeTokenExpired        = "token_expired"
	ErrCodeInvalidCredentials  = "invalid_credentials"
	ErrCodeInvalidRefreshToken = "invalid_refresh_token"
	ErrCodeRefreshExpired      = "refresh_token_expired"
	ErrCodeRefreshRevoked      = "refresh_token_revoked"
	ErrCodeConflict            = "conflict"
	ErrCodeInternal            = "internal_server_error"
	ErrCodeUnavailable         = "service_unavailable"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Code: code, Message: message})
}
