package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/tablebook/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/tablebook/internal/http/middleware"
	"github.com/wolfman30/tablebook/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger *logging.Logger
	// Web serves the public pages and the JSON helpers under /reservation.
	Web                http.Handler
	LiveBooking        http.Handler
	MetricsHandler     http.Handler
	AdminStats         *handlers.AdminStatsHandler
	OperatorJWTSecret  string
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Operator endpoints stay unmounted without a secret.
	if cfg.OperatorJWTSecret != "" && cfg.AdminStats != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.OperatorJWT(cfg.OperatorJWTSecret))
			admin.Get("/stats", cfg.AdminStats.GetStats)
			admin.Post("/cache/invalidate", cfg.AdminStats.InvalidateCache)
		})
	}

	r.Group(func(public chi.Router) {
		if cfg.RateLimiter != nil {
			// Only writes consume tokens.
			public.Use(cfg.RateLimiter.Limit)
		}
		if cfg.LiveBooking != nil {
			public.Handle("/reservation/live", cfg.LiveBooking)
		}
		if cfg.Web != nil {
			public.Mount("/", cfg.Web)
		}
	})

	return r
}
