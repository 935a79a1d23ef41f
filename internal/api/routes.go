// Package api exposes the contractor hub over REST: contractor querying
// and editing, campaign email tracking, dataset metrics, and exports.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/contractors", h.ListContractors)
		r.Get("/contractors/{id}", h.GetContractor)
		r.Patch("/contractors/{id}", h.UpdateContractor)
		r.Post("/contractors/{id}/emails/{n}/sent", h.MarkEmailSent)

		r.Get("/metrics", h.GetMetrics)
		r.Get("/execution", h.GetExecution)

		r.Post("/refresh", h.Refresh)
		r.Post("/export", h.Export)
	})

	return r
}
