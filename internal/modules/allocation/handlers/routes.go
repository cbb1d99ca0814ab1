package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all allocation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/allocation", func(r chi.Router) {
		r.Post("/flatten", h.HandleFlatten)
		r.Post("/validate", h.HandleValidate)
		r.Post("/regroup", h.HandleRegroup)
		r.Get("/presets", h.HandleGetPresets)

		// Draft editing
		r.Post("/draft", h.HandleNewDraft)
		r.Post("/draft/actions", h.HandleDraftAction)
	})
}
