package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all biome routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/biomes", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/stream", h.HandleStream)
		r.Route("/{biomeID}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Delete("/", h.HandleRemove)
			r.Get("/purity", h.HandlePurity)
			r.Get("/population/{register}", h.HandlePopulation)
			r.Get("/supports", h.HandleSupportsPair)
			r.Get("/events", h.HandleEvents)
			r.Post("/bind", h.HandleBind)
			r.Delete("/bind/{register}", h.HandleUnbind)
			r.Post("/expand", h.HandleExpand)
			r.Post("/measure", h.HandleMeasure)
			r.Post("/gate", h.HandleGate)
		})
	})
}
