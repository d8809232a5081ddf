// Package worker runs scheduled and on-demand forecast jobs.
package worker

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

// Target selectors accepted by FORECAST_TARGETS.
const (
	TargetsCatalog = "catalog"
	TargetsStored  = "stored"
)

// JobConfig holds configuration for the forecast job.
type JobConfig struct {
	// Targets are the locations to forecast.
	// If empty, every location with stored history is forecast.
	Targets []string

	// Concurrency is the number of concurrent forecasts.
	// Default: 4
	Concurrency int

	// Timeout bounds each location's forecast.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultJobConfig returns the default job configuration: every catalog
// location, four at a time.
func DefaultJobConfig() JobConfig {
	return JobConfig{
		Targets:     CatalogTargets(),
		Concurrency: 4,
		Timeout:     30 * time.Second,
	}
}

// CatalogTargets returns the names of the known sampling locations.
func CatalogTargets() []string {
	locations := waterquality.SamplingLocations()
	names := make([]string, 0, len(locations))
	for _, l := range locations {
		names = append(names, l.Name)
	}
	return names
}

// Config is the worker process configuration.
type Config struct {
	Job JobConfig

	// Interval between scheduled runs.
	Interval time.Duration

	// ProjectID and Subscription enable the Pub/Sub trigger when both are set.
	ProjectID    string
	Subscription string
}

// PubSubEnabled reports whether a subscription is configured.
func (c Config) PubSubEnabled() bool {
	return c.ProjectID != "" && c.Subscription != ""
}

// ConfigFromEnv reads FORECAST_INTERVAL, FORECAST_CONCURRENCY,
// FORECAST_TARGETS, PUBSUB_PROJECT_ID and PUBSUB_SUBSCRIPTION.
//
// FORECAST_TARGETS is "catalog" (default), "stored" or a comma separated
// list of location names.
func ConfigFromEnv() Config {
	job := DefaultJobConfig()

	if n, err := strconv.Atoi(os.Getenv("FORECAST_CONCURRENCY")); err == nil && n > 0 {
		job.Concurrency = n
	}

	switch targets := strings.TrimSpace(os.Getenv("FORECAST_TARGETS")); targets {
	case "", TargetsCatalog:
	case TargetsStored:
		job.Targets = nil
	default:
		job.Targets = splitTargets(targets)
	}

	interval, err := time.ParseDuration(getEnvOrDefault("FORECAST_INTERVAL", "24h"))
	if err != nil || interval <= 0 {
		interval = 24 * time.Hour
	}

	return Config{
		Job:          job,
		Interval:     interval,
		ProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		Subscription: os.Getenv("PUBSUB_SUBSCRIPTION"),
	}
}

func splitTargets(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
