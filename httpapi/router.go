package httpapi

import (
	"net/http"

	"github.com/MrEthical07/shiftAuth/middleware"
	"github.com/MrEthical07/shiftAuth/permission"
	"github.com/go-chi/chi/v5"
)

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle(s.metricsPath, s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		// any authenticated caller
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.engine))

			r.Get("/auth/session", s.handleSession)
			r.Get("/auth/sessions", s.handleListSessions)
			r.Post("/auth/logout-all", s.handleLogoutAll)

			r.Post("/users/me/api-key", s.handleIssueAPIKey)
			r.Delete("/users/me/api-key", s.handleRevokeAPIKey)
		})

		// managers and above
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(s.engine, permission.RoleManager))

			r.Post("/users", s.handleCreateUser)
			r.Put("/users/{id}/role", s.handleUpdateRole)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "unavailable",
			"version": s.version,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
