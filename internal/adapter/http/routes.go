package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. evaluate
// wraps the evaluation endpoint, typically with a rate limiter; nil mounts
// it unwrapped.
func MountRoutes(r chi.Router, h *Handlers, evaluate func(http.Handler) http.Handler) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Personas
		r.Get("/personas", h.ListPersonas)
		r.Post("/personas", h.CreatePersona)
		r.Delete("/personas/{id}", h.DeletePersona)

		// Fragments
		r.Get("/fragments", h.ListFragments)
		r.Post("/fragments", h.CreateFragment)
		r.Delete("/fragments/{id}", h.DeleteFragment)

		// Compositions
		r.Get("/compositions", h.ListCompositions)
		r.Post("/compositions", h.CreateComposition)
		r.Post("/compositions/preview", h.PreviewComposition)
		r.Delete("/compositions/{id}", h.DeleteComposition)
		r.Put("/compositions/{id}/activate", h.ActivateComposition)

		// Landing view and history
		r.Get("/active", h.GetActive)
		r.Get("/activations", h.ListActivations)

		// Test article evaluation
		if evaluate != nil {
			r.With(evaluate).Post("/evaluate", h.Evaluate)
		} else {
			r.Post("/evaluate", h.Evaluate)
		}
	})
}
