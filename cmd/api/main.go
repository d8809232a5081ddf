// Package main provides the entrypoint for the Toba water monitor API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/middleware"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/auth"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/database"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/history"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/provider/resilience"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/telemetry"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality/reference"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "toba-water-monitor-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Toba water monitor API")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)

	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	forecastMetrics, err := telemetry.NewForecastMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize forecast metrics")
	}

	// Storage
	var repo history.Repository
	switch backend := os.Getenv("STORAGE_BACKEND"); backend {
	case "memory":
		repo = history.NewInMemoryRepository()
		log.Warn().Msg("using in-memory storage - data is lost on restart")
	case "", "postgres":
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("dsn", dbConfig.Redacted()).
			Msg("database connected")

		if err := database.Migrate(ctx, pool, log); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		repo = history.NewPostgresRepository(pool)
	default:
		log.Fatal().Str("backend", backend).Msg("unknown STORAGE_BACKEND, expected memory or postgres")
	}

	// Reference dataset
	registry := resilience.NewRegistry(nil)
	sourceCfg := reference.SourceConfigFromEnv()
	source := reference.NewSource(sourceCfg, registry, log)

	referenceService := reference.NewService(reference.ServiceConfig{
		Source:   source,
		Logger:   log.With().Str("component", "reference").Logger(),
		CacheTTL: sourceCfg.CacheTTL,
		Metrics:  forecastMetrics,
	})
	log.Info().
		Str("source", source.Name()).
		Dur("cache_ttl", sourceCfg.CacheTTL).
		Msg("reference service initialized")

	historyService := history.NewService(history.ServiceConfig{
		Repository: repo,
		Forecaster: waterquality.NewForecaster(waterquality.ForecasterConfig{
			Reference: referenceService,
			Logger:    log.With().Str("component", "forecaster").Logger(),
		}),
		Logger:  log,
		Metrics: forecastMetrics,
	})

	// Operator auth
	jwtCfg := auth.ConfigFromEnv()
	if jwtCfg.SigningKey == auth.DefaultSigningKey {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	jwtService := auth.NewJWTService(jwtCfg)

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:          Version,
		BuildTime:        BuildTime,
		Logger:           log,
		ServiceName:      serviceName,
		Metrics:          metrics,
		JWTService:       jwtService,
		HistoryService:   historyService,
		ReferenceService: referenceService,
		Registry:         registry,
		RequireTLS:       os.Getenv("REQUIRE_TLS") == "true",
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
