package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/application"
)

// Handler is the HTTP adapter entrypoint for security-session use-cases.
// Keeping only the application dependency here preserves clean adapter boundaries.
type Handler struct {
	service  *application.Service
	validate *validator.Validate
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// NewRouter registers the security-session HTTP routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/security/v1", func(r chi.Router) {
		r.Post("/authenticate", handler.authenticate)
		r.Post("/sessions/validate", handler.validateSession)
		r.Post("/sessions/refresh", handler.refreshSession)
		r.Post("/logout", handler.logout)

		r.Post("/events", handler.logEvent)
		r.Post("/events/batch", handler.logEventsBatch)
		r.Get("/events", handler.queryEvents)

		r.Get("/alerts", handler.activeAlerts)
		r.Get("/alerts/history", handler.alertHistory)
		r.Patch("/alerts/{alert_id}", handler.updateAlert)

		r.Get("/health", handler.health)
	})

	return r
}
