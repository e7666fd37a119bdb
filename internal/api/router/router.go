package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sentinel-intel/sentinel/internal/http/handlers"
	httpmiddleware "github.com/sentinel-intel/sentinel/internal/http/middleware"
	"github.com/sentinel-intel/sentinel/internal/messaging"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

// Config holds router configuration. Nil handlers disable their routes.
type Config struct {
	Logger             *logging.Logger
	AnalyzeHandler     *handlers.AnalyzeHandler
	MediaHandler       *handlers.MediaHandler
	TwilioWebhook      *messaging.WebhookHandler
	SessionsCleanup    *handlers.SessionsCleanupHandler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// RateLimitPerSecond caps anonymous analyze traffic per IP. Zero disables.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

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

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", handlers.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.TwilioWebhook != nil {
			public.Post("/webhooks/twilio/messages", cfg.TwilioWebhook.ServeHTTP)
		}
	})

	// Analysis API, rate limited when configured
	r.Group(func(api chi.Router) {
		if cfg.RateLimitPerSecond > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
		}
		if cfg.AnalyzeHandler != nil {
			api.Post("/api/analyze", cfg.AnalyzeHandler.ServeHTTP)
		}
		if cfg.MediaHandler != nil {
			api.Post("/api/analyze/media", cfg.MediaHandler.ServeHTTP)
		}
	})

	// Admin routes behind HMAC JWT
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.SessionsCleanup != nil {
				admin.Post("/sessions/cleanup", cfg.SessionsCleanup.ServeHTTP)
			}
		})
	}

	return r
}
