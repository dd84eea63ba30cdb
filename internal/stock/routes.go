package stock

import "github.com/go-chi/chi/v5"

// MountRoutes registers the stock endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/stock", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", h.createDocument)
			r.Get("/", h.listDocuments)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getDocument)
				r.Patch("/", h.updateDocument)
				r.Delete("/", h.deleteDocument)
				r.Put("/lines", h.replaceLines)
				r.Post("/validate", h.validateDocument)
				r.Post("/cancel", h.cancelDocument)
				r.Get("/availability", h.documentAvailability)
			})
		})
		r.Get("/quants", h.listQuants)
		r.Get("/ledger", h.ledgerHistory)
	})
}
