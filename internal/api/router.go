// Package api provides the HTTP API for the Danau Toba water monitor.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/handler"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/middleware"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/auth"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/history"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/provider/resilience"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality/reference"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version          string
	BuildTime        string
	Logger           zerolog.Logger
	ServiceName      string
	Metrics          *middleware.Metrics
	JWTService       *auth.JWTService
	HistoryService   *history.Service
	ReferenceService *reference.Service
	Registry         *resilience.Registry

	// RequireTLS rejects plain-HTTP requests forwarded by a proxy.
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "toba-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON) // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Storage:   cfg.HistoryService,
		Registry:  cfg.Registry,
		Reference: cfg.ReferenceService,
	})
	locationHandler := handler.NewLocationHandler(cfg.HistoryService, cfg.Logger)
	historyHandler := handler.NewHistoryHandler(cfg.HistoryService, cfg.Logger)
	forecastHandler := handler.NewForecastHandler(cfg.HistoryService, cfg.Logger)
	referenceHandler := handler.NewReferenceHandler(cfg.ReferenceService, cfg.Logger)

	// Operator-only endpoints
	authMiddleware := middleware.Auth(cfg.JWTService)

	// Create rate limit middleware for different endpoint categories
	uploadRateLimit := middleware.RateLimitByOperator(middleware.UploadRateLimit) // 10 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Read endpoints (public) - standard rate limiting
		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)

			r.Route("/locations", func(r chi.Router) {
				r.Get("/", locationHandler.ListLocations)
				r.Route("/{location}", func(r chi.Router) {
					r.Get("/history", locationHandler.GetHistory)
					r.Get("/statistics", locationHandler.GetStatistics)
					r.Get("/forecast", locationHandler.GetLatestForecast)
				})
			})

			r.Get("/history:export", historyHandler.ExportHistory)
			r.Get("/forecasts:export", forecastHandler.ExportForecasts)
			r.Get("/snapshots/{date}", historyHandler.GetSnapshot)

			r.Get("/reference/models", referenceHandler.GetModels)
			r.Get("/reference/sensitivity", referenceHandler.GetSensitivity)
		})

		// Forecast endpoint - expensive compute, strict rate limiting
		r.With(expensiveRateLimit, middleware.RequireJSON).Post("/forecasts", forecastHandler.CreateForecast)

		// Write endpoints (operator) - operator-based rate limiting
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(uploadRateLimit)

			r.Post("/history:import", historyHandler.ImportHistory)
			r.With(middleware.RequireJSON).Put("/reference/samples", referenceHandler.ReplaceSamples)
			r.Post("/reference/invalidate", referenceHandler.InvalidateCache)
		})
	})

	return r
}
