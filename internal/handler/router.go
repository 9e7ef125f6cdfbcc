package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/docchat/internal/middleware"
	natsclient "github.com/capitalize-ai/docchat/internal/nats"
	"github.com/capitalize-ai/docchat/internal/registry"
	"github.com/capitalize-ai/docchat/pkg/logger"
)

// RouterConfig holds what the API router needs.
type RouterConfig struct {
	Sessions          *registry.Registry
	NATS              *natsclient.Client
	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	Heartbeat         time.Duration
	Logger            *logger.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	healthHandler := NewHealthHandler(cfg.NATS)
	documentHandler := NewDocumentHandler(cfg.Sessions, cfg.Logger)
	threadHandler := NewThreadHandler(cfg.Sessions, cfg.Logger)
	eventHandler := NewEventHandler(cfg.Sessions, cfg.Heartbeat, cfg.Logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))

		// The event stream is long-lived and not rate limited.
		r.Get("/events", eventHandler.Stream)

		r.Group(func(r chi.Router) {
			if cfg.RateLimitRequests > 0 {
				r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
			}

			r.Get("/documents", documentHandler.List)
			r.Post("/documents/{documentId}/open", documentHandler.Open)
			r.Post("/refresh", documentHandler.Refresh)

			r.Route("/threads", func(r chi.Router) {
				r.Get("/", threadHandler.List)
				r.Post("/", threadHandler.Create)
				r.Put("/{id}/active", threadHandler.Select)
				r.Post("/{id}/submit", threadHandler.Submit)
			})
		})
	})

	return r
}
