package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all chain snapshot routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chains", func(r chi.Router) {
		r.Post("/{symbol}/snapshot", h.HandlePushSnapshot)
		r.Get("/{symbol}/latest", h.HandleLatestSnapshot)
	})
}
