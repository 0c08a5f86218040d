package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers all evaluation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/evaluations", func(r chi.Router) {
		// Large chains can take a while to generate and score.
		r.Use(middleware.Timeout(120 * time.Second))

		r.Post("/", h.HandleEvaluateBatch)
		r.Post("/candidate", h.HandleEvaluateCandidate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
	})
}
