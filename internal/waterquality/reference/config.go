package reference

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/provider/resilience"
)

// DefaultDataPath is the reference file read when no URL is configured.
const DefaultDataPath = "data/training_data.json"

// upstreamName is the registry name of the reference HTTP upstream.
const upstreamName = "reference-data"

// SourceConfig selects where the reference dataset comes from.
type SourceConfig struct {
	// URL of a JSON array of samples. Takes precedence over Path.
	URL string

	// Path of a local JSON file.
	Path string

	// CacheTTL for the reference service.
	CacheTTL time.Duration
}

// SourceConfigFromEnv reads REFERENCE_DATA_URL, REFERENCE_DATA_PATH and
// REFERENCE_CACHE_TTL.
func SourceConfigFromEnv() SourceConfig {
	ttl, err := time.ParseDuration(getEnvOrDefault("REFERENCE_CACHE_TTL", "10m"))
	if err != nil || ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return SourceConfig{
		URL:      os.Getenv("REFERENCE_DATA_URL"),
		Path:     getEnvOrDefault("REFERENCE_DATA_PATH", DefaultDataPath),
		CacheTTL: ttl,
	}
}

// NewSource builds the configured Source. The HTTP source goes through a
// resilient client registered with registry, which may be nil.
func NewSource(cfg SourceConfig, registry *resilience.Registry, logger zerolog.Logger) Source {
	if cfg.URL == "" {
		path := cfg.Path
		if path == "" {
			path = DefaultDataPath
		}
		return FileSource{Path: path}
	}

	clientCfg := resilience.DefaultClientConfig(upstreamName)
	clientCfg.Registry = registry
	clientCfg.Logger = logger
	return NewHTTPSource(cfg.URL, resilience.NewClient(clientCfg))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
