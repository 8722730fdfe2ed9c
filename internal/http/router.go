package apihttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/chainbadge/internal/handlers"
)

// NewRouter wires routes and middlewares.
func NewRouter(h *handlers.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recover)
	r.Use(CORS)

	r.Get("/health", handlers.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/query/*", h.Query)
	r.Post("/api/batch", h.Batch)
	r.Get("/badge/*", h.Badge)
	r.Get("/endpoint/*", h.Endpoint)
	r.Get("/scanner/*", h.Scanner)

	return r
}
