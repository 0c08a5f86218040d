package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all candidate generation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/candidates", func(r chi.Router) {
		r.Post("/generate", h.HandleGenerate)
	})
}
