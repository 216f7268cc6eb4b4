package api

import (
	"net/http"

	"meme-workers/internal/common/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates the tool API router. metrics serves /metrics; nil uses
// the default Prometheus registry.
func NewRouter(h *Handler, log logger.Logger, metrics http.Handler) *chi.Mux {
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(log))
	r.Use(RecoveryMiddleware(log))

	r.Handle("/metrics", metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/tools", h.Tools)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			r.Post("/tools/fetch_key_context", h.FetchKeyContext)
			r.Post("/tools/parse_message", h.ParseMessage)
			r.Post("/tools/generate_meme", h.GenerateMeme)
		})
	})

	return r
}
