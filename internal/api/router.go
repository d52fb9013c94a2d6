package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/netfield-connect/internal/dataservice"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)

	// Data service routes, authenticated by API key.
	r.Group(func(r chi.Router) {
		r.Use(s.apiKeyMiddleware)

		r.Get(dataservice.InfoPath, s.handleInfo)
		r.Post(dataservice.DevicesPath, s.handleDevices)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
