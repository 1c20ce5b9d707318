package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zapagenda/zapagenda/internal/http/handlers"
	httpmiddleware "github.com/zapagenda/zapagenda/internal/http/middleware"
	"github.com/zapagenda/zapagenda/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger            *logging.Logger
	BotHandler        *handlers.BotWebhookHandler
	AuthHandler       *handlers.AuthHandler
	AdminAppointments *handlers.AdminAppointmentsHandler
	AdminAuthSecret   string
	WebhookLimiter    *httpmiddleware.RedisRateLimiter
	MetricsHandler    http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhook, health check, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.BotHandler.HealthCheck)
		public.With(httpmiddleware.WebhookRateLimit(cfg.WebhookLimiter)).
			Post("/bot", cfg.BotHandler.HandleInbound)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.AuthHandler != nil {
			public.Post("/admin/login", cfg.AuthHandler.Login)
		}
	})

	// Back-office endpoints behind the admin JWT
	if cfg.AdminAppointments != nil {
		r.Route("/admin/appointments", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/open", cfg.AdminAppointments.ListOpen)
			admin.Get("/completed", cfg.AdminAppointments.ListCompleted)
			admin.Post("/{id}/assign", cfg.AdminAppointments.Assign)
			admin.Post("/{id}/complete", cfg.AdminAppointments.Complete)
		})
	}

	return r
}
