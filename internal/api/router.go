// Package api is the local HTTP shell: a small JSON API over the session
// plus a server-sent event stream per job.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(h *Handler, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(localOrigin)
		r.Get("/formats", h.Formats)
		r.Get("/history", h.History)
		r.With(requireJSON).Post("/jobs", h.CreateJob)
		r.Get("/jobs/{jobID}", h.GetJob)
		r.Get("/jobs/{jobID}/events", h.Events)
	})

	return r
}
