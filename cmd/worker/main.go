// Package main provides the entrypoint for the forecast worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/models"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/response"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/database"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/history"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/provider/resilience"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/telemetry"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality/reference"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "toba-water-monitor-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting forecast worker")

	// Worker also exposes health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)
	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	forecastMetrics, err := telemetry.NewForecastMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize forecast metrics")
	}

	// Storage
	var repo history.Repository
	switch backend := os.Getenv("STORAGE_BACKEND"); backend {
	case "memory":
		repo = history.NewInMemoryRepository()
		log.Warn().Msg("using in-memory storage - forecasts are lost on restart")
	case "", "postgres":
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, log); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		repo = history.NewPostgresRepository(pool)
	default:
		log.Fatal().Str("backend", backend).Msg("unknown STORAGE_BACKEND, expected memory or postgres")
	}

	// Reference dataset and forecaster
	registry := resilience.NewRegistry(nil)
	sourceCfg := reference.SourceConfigFromEnv()
	referenceService := reference.NewService(reference.ServiceConfig{
		Source:   reference.NewSource(sourceCfg, registry, log),
		Logger:   log.With().Str("component", "reference").Logger(),
		CacheTTL: sourceCfg.CacheTTL,
		Metrics:  forecastMetrics,
	})

	historyService := history.NewService(history.ServiceConfig{
		Repository: repo,
		Forecaster: waterquality.NewForecaster(waterquality.ForecasterConfig{
			Reference: referenceService,
			Logger:    log.With().Str("component", "forecaster").Logger(),
		}),
		Logger:  log,
		Metrics: forecastMetrics,
	})

	cfg := worker.ConfigFromEnv()
	job := worker.NewForecastJob(worker.ForecastJobConfig{
		Config:     cfg.Job,
		Forecaster: historyService,
		Logger:     log.With().Str("component", "forecast-job").Logger(),
	})

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		Job: job,
		Checks: map[string]worker.Pinger{
			"storage":   historyService,
			"reference": referenceService,
		},
		Logger: log,
	})

	// Health server
	router := chi.NewRouter()
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, models.Health{
			Status: models.HealthStatusOK,
			Time:   models.Timestamp(time.Now()),
			Details: map[string]interface{}{
				"version": Version,
				"job":     job.MetricsSnapshot(),
			},
		})
	})
	router.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, pingCancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer pingCancel()
		if err := historyService.Ping(pingCtx); err != nil {
			response.ServiceUnavailable(w, r, "storage unreachable")
			return
		}
		response.JSON(w, r, http.StatusOK, models.Health{
			Status: models.HealthStatusOK,
			Time:   models.Timestamp(time.Now()),
		})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Optional Pub/Sub trigger
	if cfg.PubSubEnabled() {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.ProjectID,
			SubscriptionName: cfg.Subscription,
			Dispatcher:       dispatcher,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if err := handler.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub client")
			}
		}()

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub receive stopped")
			}
		}()
	} else {
		log.Info().Msg("pubsub not configured, running on schedule only")
	}

	// Scheduled runs
	go func() {
		log.Info().
			Dur("interval", cfg.Interval).
			Int("concurrency", cfg.Job.Concurrency).
			Msg("forecast schedule started")

		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result, err := job.Run(ctx)
				if err != nil {
					log.Error().Err(err).Msg("scheduled forecast run failed")
					continue
				}
				if result.MajorityFailed() {
					log.Warn().
						Int("failed", result.Failed).
						Int("total", result.Total).
						Msg("most scheduled forecasts failed")
				}
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
