/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/tenants/*       Tenant management and payments
  /api/payments/*      Payment cancellation
  /api/sweep/*         Reconciliation sweep
  /api/stats/*         Aggregates
  /api/reminders/*     Upcoming reminders
  /api/settings        Sweep configuration

SECURITY NOTE:
  No authentication middleware. The server binds for a single operator on
  a local device.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Tenant routes
		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", h.ListTenants)
			r.Post("/", h.CreateTenant)
			r.Get("/{id}", h.GetTenant)
			r.Put("/{id}", h.UpdateTenant)
			r.Delete("/{id}", h.DeleteTenant)
			r.Get("/{id}/payments", h.PaymentHistory)
			r.Post("/{id}/payments", h.RecordPayment)
			r.Get("/{id}/stats", h.GetTenantStats)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Delete("/{id}", h.CancelPayment)
		})

		// Sweep routes
		r.Route("/sweep", func(r chi.Router) {
			r.Post("/", h.RunSweep)
			r.Get("/runs", h.ListSweepRuns)
		})

		// Stats routes
		r.Route("/stats", func(r chi.Router) {
			r.Get("/dashboard", h.GetDashboardStats)
		})

		// Reminder routes
		r.Route("/reminders", func(r chi.Router) {
			r.Get("/upcoming", h.UpcomingReminders)
		})

		// Settings routes
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
	})

	return r
}
