package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. Probes
// and the WebSocket endpoint live at the root; everything else sits
// under /api/v1. apiMiddlewares (auth, rate limiting) apply to the
// /api/v1 group only, so probes stay reachable.
func MountRoutes(r chi.Router, h *Handlers, apiMiddlewares ...func(http.Handler) http.Handler) {
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Get("/ws", h.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		for _, mw := range apiMiddlewares {
			r.Use(mw)
		}
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		r.Post("/deliberations", h.CreateDeliberation)
		r.Get("/deliberations", h.ListDeliberations)
		r.Get("/deliberations/{id}", h.GetDeliberation)

		r.Get("/breakers", h.GetBreakers)

		r.Get("/skills", h.ListSkills)
		r.Get("/skills/{name}", h.GetSkill)
	})
}
