package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// WebSocket upgrade. Browsers cannot set an Authorization
		// header here; the handler validates a single-use ticket
		// issued to an authenticated caller instead.
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Device endpoints
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Post("/", s.handleCreateDevice)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.Patch("/", s.handleUpdateDevice)
					r.Delete("/", s.handleDeleteDevice)
					r.Get("/deployments", s.handleListDeviceDeployments)
				})
			})

			// Component catalog endpoints
			r.Route("/component-types", func(r chi.Router) {
				r.Get("/", s.handleListComponentTypes)
				r.Post("/", s.handleCreateComponentType)
				r.Get("/{id}", s.handleGetComponentType)
				r.Patch("/{id}", s.handleUpdateComponentType)
				r.Delete("/{id}", s.handleDeleteComponentType)
			})

			// Deployment endpoints
			r.Route("/deployments", func(r chi.Router) {
				r.Post("/", s.handleCreateDeployment)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetDeployment)
					r.Delete("/", s.handleDeleteDeployment)
					r.Get("/readings", s.handleListReadings)
					r.Get("/readings/latest", s.handleLatestReading)
					r.Get("/commands", s.handleListCommands)
					r.Post("/commands", s.handleSendCommand)
				})
			})

			// Automation rule endpoints
			r.Route("/rules", func(r chi.Router) {
				r.Get("/", s.handleListRules)
				r.Post("/", s.handleCreateRule)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetRule)
					r.Patch("/", s.handleUpdateRule)
					r.Delete("/", s.handleDeleteRule)
					r.Post("/activate", s.handleActivateRule)
					r.Post("/deactivate", s.handleDeactivateRule)
				})
			})

			// Alert endpoints
			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", s.handleListAlerts)
				r.Post("/{id}/acknowledge", s.handleAcknowledgeAlert)
			})
		})
	})

	return r
}
