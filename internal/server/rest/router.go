package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/devlearning/devauth/internal/server/models"
)

// NewRouter registers every route and wraps the mux with CORS and request
// logging.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger(h.log))

	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)

	pub := r.PathPrefix("/api/auth").Subrouter()
	pub.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	pub.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	pub.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
	pub.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	pub.HandleFunc("/validate", h.Validate).Methods(http.MethodPost)
	pub.Handle("/logout-all", h.requireAuth(http.HandlerFunc(h.LogoutAll))).Methods(http.MethodPost)

	r.Handle("/api/refresh-tokens", h.requireAuth(http.HandlerFunc(h.RevokeAllTokens))).Methods(http.MethodDelete)

	tokens := r.PathPrefix("/api/refresh-tokens").Subrouter()
	tokens.Use(h.requireAuth)
	tokens.HandleFunc("/my-tokens", h.MyTokens).Methods(http.MethodGet)
	tokens.HandleFunc("/stats", h.TokenStats).Methods(http.MethodGet)
	tokens.HandleFunc("/{id}", h.RevokeToken).Methods(http.MethodDelete)

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(h.requireAuth, requireRole(models.RoleAdmin))
	admin.HandleFunc("/principals/{id}/revoke-tokens", h.AdminRevokeTokens).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         3600,
	})
	return c.Handler(r)
}
