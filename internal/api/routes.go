package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Legacy trigger path.
	r.Post("/trigger-scoring", h.TriggerScoring)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/stats", h.Stats)
		r.Get("/snapshot", h.Snapshot)

		r.Post("/scoring/trigger", h.TriggerScoring)
		r.Get("/scoring/runs/{id}", h.RunStatus)

		r.Post("/posts", h.CreatePosts)
		r.Get("/posts/{id}/rating", h.PostRating)
	})

	return r
}
