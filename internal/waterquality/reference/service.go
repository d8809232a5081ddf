package reference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/telemetry"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

// UploadSource is the source name reported for samples set with Replace.
const UploadSource = "upload"

// ServiceConfig holds configuration for the reference service.
type ServiceConfig struct {
	// Source supplies the dataset.
	Source Source

	// Logger for cache diagnostics.
	Logger zerolog.Logger

	// Clock for cache expiry (default: real clock).
	Clock clockwork.Clock

	// CacheTTL is how long loaded samples are served without refetching
	// (default: 10 minutes).
	CacheTTL time.Duration

	// StaleIfErrorTTL is how long after a successful load the samples may
	// still be served when the source fails (default: 24 hours).
	StaleIfErrorTTL time.Duration

	// Metrics records fetch outcomes. Optional.
	Metrics *telemetry.ForecastMetrics
}

// Service caches the raw reference samples in front of a Source. It
// implements waterquality.ReferenceSource; models are fitted by the caller
// on every run.
type Service struct {
	source          Source
	logger          zerolog.Logger
	clock           clockwork.Clock
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	metrics         *telemetry.ForecastMetrics

	mu          sync.RWMutex
	samples     []waterquality.ReferenceSample
	origin      string
	fetchedAt   time.Time
	cacheExpiry time.Time
	replaced    bool
}

// NewService creates a new reference service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 24 * time.Hour
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Service{
		source:          cfg.Source,
		logger:          cfg.Logger,
		clock:           clock,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		metrics:         cfg.Metrics,
	}
}

// LoadSamples returns the cached samples, refreshing them from the source
// once the cache has expired. Samples set with Replace never expire.
func (s *Service) LoadSamples(ctx context.Context) ([]waterquality.ReferenceSample, error) {
	s.mu.RLock()
	if s.samples != nil && (s.replaced || s.clock.Now().Before(s.cacheExpiry)) {
		samples := s.samples
		s.mu.RUnlock()
		s.metrics.RecordReferenceFetch(ctx, telemetry.FetchCached)
		return samples, nil
	}
	s.mu.RUnlock()

	return s.refresh(ctx)
}

// Models fits the per-category models on the current samples.
func (s *Service) Models(ctx context.Context) (waterquality.ReferenceModels, error) {
	samples, err := s.LoadSamples(ctx)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, waterquality.ErrEmptyDataset
	}
	return waterquality.BuildModels(samples), nil
}

// Sensitivity runs the multivariate index regression on the current samples.
func (s *Service) Sensitivity(ctx context.Context) (*waterquality.SensitivityReport, error) {
	samples, err := s.LoadSamples(ctx)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, waterquality.ErrEmptyDataset
	}
	return waterquality.Sensitivity(samples)
}

// Ping loads the dataset through the cache and fails when it is unavailable
// or empty.
func (s *Service) Ping(ctx context.Context) error {
	samples, err := s.LoadSamples(ctx)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return waterquality.ErrEmptyDataset
	}
	return nil
}

// Replace installs an uploaded dataset. It is served until Invalidate.
func (s *Service) Replace(samples []waterquality.ReferenceSample) error {
	if len(samples) == 0 {
		return waterquality.ErrEmptyDataset
	}

	copied := make([]waterquality.ReferenceSample, len(samples))
	copy(copied, samples)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.samples = copied
	s.origin = UploadSource
	s.fetchedAt = now
	s.cacheExpiry = now.Add(s.cacheTTL)
	s.replaced = true

	s.logger.Info().Int("samples", len(copied)).Msg("reference dataset replaced by upload")
	return nil
}

// Invalidate drops the cache, including uploaded samples.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = nil
	s.origin = ""
	s.fetchedAt = time.Time{}
	s.cacheExpiry = time.Time{}
	s.replaced = false
}

// CacheStatus represents the current state of the cache.
type CacheStatus struct {
	HasData     bool      `json:"hasData"`
	Source      string    `json:"source,omitempty"`
	SampleCount int       `json:"sampleCount"`
	FetchedAt   time.Time `json:"fetchedAt,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
	IsExpired   bool      `json:"isExpired"`
	IsStale     bool      `json:"isStale"`
	Replaced    bool      `json:"replaced"`
}

// CacheStatus returns information about the current cache state.
func (s *Service) CacheStatus() CacheStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.samples == nil {
		return CacheStatus{}
	}

	now := s.clock.Now()
	return CacheStatus{
		HasData:     true,
		Source:      s.origin,
		SampleCount: len(s.samples),
		FetchedAt:   s.fetchedAt,
		ExpiresAt:   s.cacheExpiry,
		IsExpired:   !s.replaced && !now.Before(s.cacheExpiry),
		IsStale:     !s.replaced && now.After(s.fetchedAt.Add(s.staleIfErrorTTL)),
		Replaced:    s.replaced,
	}
}

func (s *Service) refresh(ctx context.Context) ([]waterquality.ReferenceSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.samples != nil && (s.replaced || now.Before(s.cacheExpiry)) {
		s.metrics.RecordReferenceFetch(ctx, telemetry.FetchCached)
		return s.samples, nil
	}

	if s.source == nil {
		s.metrics.RecordReferenceFetch(ctx, telemetry.FetchFailed)
		return nil, fmt.Errorf("%w: no source configured", waterquality.ErrReferenceUnavailable)
	}

	s.logger.Debug().Str("source", s.source.Name()).Msg("loading reference dataset")

	samples, err := s.source.LoadSamples(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("source", s.source.Name()).Msg("failed to load reference dataset")

		if s.samples != nil && now.Before(s.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", s.fetchedAt).
				Msg("serving stale reference dataset due to source error")
			s.metrics.RecordReferenceFetch(ctx, telemetry.FetchStale)
			return s.samples, nil
		}

		s.metrics.RecordReferenceFetch(ctx, telemetry.FetchFailed)
		return nil, fmt.Errorf("%w: %w", waterquality.ErrReferenceUnavailable, err)
	}

	if samples == nil {
		samples = []waterquality.ReferenceSample{}
	}

	s.samples = samples
	s.origin = s.source.Name()
	s.fetchedAt = now
	s.cacheExpiry = now.Add(s.cacheTTL)

	s.logger.Info().
		Int("samples", len(samples)).
		Time("expires_at", s.cacheExpiry).
		Msg("reference dataset loaded")
	s.metrics.RecordReferenceFetch(ctx, telemetry.FetchFresh)

	return samples, nil
}
