package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/wonny/tripsniper/internal/api/handlers"
	"github.com/wonny/tripsniper/internal/api/middleware"
	"github.com/wonny/tripsniper/internal/obs"
)

// Config holds router configuration
type Config struct {
	OffersHandler *handlers.OffersHandler
	HealthHandler *handlers.HealthHandler
	RunsHandler   *handlers.RunsHandler // nil when the store keeps no run log

	Metrics        *obs.Metrics    // nil disables /metrics
	AccessLogger   *zerolog.Logger // nil logs to the global logger
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter creates a new HTTP router
func NewRouter(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Recovery must be first
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.Logging(middleware.LoggingConfig{
		AccessLogger: cfg.AccessLogger,
		SkipPaths:    []string{"/health", "/health/ready", "/metrics"},
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))

	// Health checks (no /api prefix)
	r.Get("/health", cfg.HealthHandler.Health)
	r.Get("/health/ready", cfg.HealthHandler.Ready)

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health/detailed", cfg.HealthHandler.Detailed)
		r.Get("/offers", cfg.OffersHandler.List)
		if cfg.RunsHandler != nil {
			r.Get("/runs", cfg.RunsHandler.Recent)
		}
	})

	// Unversioned alias kept for existing clients
	r.Get("/offers", cfg.OffersHandler.List)

	return r
}
