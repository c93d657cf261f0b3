// Package router wires the dashboard's HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brightpath-health/practice-dashboard/internal/http/handlers"
	httpmiddleware "github.com/brightpath-health/practice-dashboard/internal/http/middleware"
	"github.com/brightpath-health/practice-dashboard/internal/ws"
	"github.com/brightpath-health/practice-dashboard/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ScheduleHandler     *handlers.ScheduleHandler
	AppointmentsHandler *handlers.AppointmentsHandler
	AvailabilityHandler *handlers.AvailabilityHandler
	PatientsHandler     *handlers.PatientsHandler
	StatsHandler        *handlers.StatsHandler
	LiveHandler         *ws.LiveHandler
	MetricsHandler      http.Handler
	ProviderJWTSecret   string
	CORSAllowedOrigins  []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (probes, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", handlers.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Provider routes, scoped by JWT subject
	r.Route("/providers/{providerID}", func(provider chi.Router) {
		provider.Use(httpmiddleware.ProviderJWT(cfg.ProviderJWTSecret))

		if cfg.ScheduleHandler != nil {
			provider.Route("/schedule", func(s chi.Router) {
				s.Get("/today", cfg.ScheduleHandler.GetToday)
				s.Get("/countdown", cfg.ScheduleHandler.GetCountdown)
				s.Get("/day/{date}", cfg.ScheduleHandler.GetDay)
				s.Get("/month/{year}/{month}", cfg.ScheduleHandler.GetMonth)
				if cfg.StatsHandler != nil {
					s.Get("/stats", cfg.StatsHandler.GetStats)
				}
				if cfg.LiveHandler != nil {
					s.Get("/live", cfg.LiveHandler.Serve)
				}
			})
		}

		if cfg.AppointmentsHandler != nil {
			provider.Route("/appointments", func(a chi.Router) {
				a.Get("/", cfg.AppointmentsHandler.List)
				a.Post("/", cfg.AppointmentsHandler.Create)
				a.Get("/{appointmentID}", cfg.AppointmentsHandler.Get)
				a.Patch("/{appointmentID}/status", cfg.AppointmentsHandler.UpdateStatus)
				a.Delete("/{appointmentID}", cfg.AppointmentsHandler.Delete)
			})
		}

		if cfg.AvailabilityHandler != nil {
			provider.Get("/availability", cfg.AvailabilityHandler.Get)
			provider.Put("/availability", cfg.AvailabilityHandler.Put)
		}

		if cfg.PatientsHandler != nil {
			provider.Get("/patients", cfg.PatientsHandler.List)
			provider.Post("/patients", cfg.PatientsHandler.Create)
		}
	})

	return r
}
