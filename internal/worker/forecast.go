package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

// Forecaster runs and stores forecasts. *history.Service satisfies it.
type Forecaster interface {
	// Forecast runs and persists the forecast of one location.
	Forecast(ctx context.Context, location string) (*waterquality.ForecastResult, error)

	// StoredLocations lists the locations with stored history.
	StoredLocations(ctx context.Context) ([]string, error)
}

// ForecastJob forecasts a set of locations with a bounded worker pool.
type ForecastJob struct {
	config     JobConfig
	forecaster Forecaster
	logger     zerolog.Logger
	clock      clockwork.Clock

	metrics *JobMetrics
}

// JobMetrics tracks cumulative job statistics.
type JobMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns  int64
	Forecasts  int64
	Fallbacks  int64
	Failures   int64
	LastFailed int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// ForecastJobConfig holds configuration for creating a ForecastJob.
type ForecastJobConfig struct {
	Config     JobConfig
	Forecaster Forecaster
	Logger     zerolog.Logger

	// Clock times runs (default: real clock).
	Clock clockwork.Clock
}

// NewForecastJob creates a new forecast job.
func NewForecastJob(cfg ForecastJobConfig) *ForecastJob {
	config := cfg.Config
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &ForecastJob{
		config:     config,
		forecaster: cfg.Forecaster,
		logger:     cfg.Logger,
		clock:      clock,
		metrics:    &JobMetrics{},
	}
}

// JobResult contains the result of one run.
type JobResult struct {
	StartTime  time.Time     `json:"startTime"`
	EndTime    time.Time     `json:"endTime"`
	Duration   time.Duration `json:"duration"`
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Fallbacks  int           `json:"fallbacks"`
	Failed     int           `json:"failed"`
	Errors     []JobError    `json:"errors,omitempty"`
}

// MajorityFailed reports whether more locations failed than succeeded.
func (r *JobResult) MajorityFailed() bool {
	return r.Failed > r.Successful
}

// JobError records a location whose forecast failed.
type JobError struct {
	Location string `json:"location"`
	Error    string `json:"error"`
}

// Run forecasts the configured targets, or every stored location when none
// are configured.
func (j *ForecastJob) Run(ctx context.Context) (*JobResult, error) {
	targets := j.config.Targets
	if len(targets) == 0 {
		stored, err := j.forecaster.StoredLocations(ctx)
		if err != nil {
			return nil, fmt.Errorf("list stored locations: %w", err)
		}
		targets = stored
	}
	return j.RunLocations(ctx, targets), nil
}

// RunLocations forecasts the given locations. Blank and repeated names are
// skipped.
func (j *ForecastJob) RunLocations(ctx context.Context, locations []string) *JobResult {
	locations = uniqueLocations(locations)

	startTime := j.clock.Now()
	result := &JobResult{
		StartTime: startTime,
		Total:     len(locations),
	}

	j.logger.Info().
		Int("total_locations", result.Total).
		Int("concurrency", j.config.Concurrency).
		Msg("starting forecast job")

	// Create work channels
	locationsChan := make(chan string, len(locations))
	resultsChan := make(chan locationResult, len(locations))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.forecastWorker(ctx, locationsChan, resultsChan)
		}()
	}

	for _, l := range locations {
		locationsChan <- l
	}
	close(locationsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Collect results
	for lr := range resultsChan {
		switch {
		case lr.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, JobError{
				Location: lr.location,
				Error:    lr.err.Error(),
			})
		case lr.fallback:
			result.Successful++
			result.Fallbacks++
		default:
			result.Successful++
		}
	}

	result.EndTime = j.clock.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("fallbacks", result.Fallbacks).
		Int("failed", result.Failed).
		Msg("forecast job completed")

	return result
}

type locationResult struct {
	location string
	fallback bool
	err      error
}

func (j *ForecastJob) forecastWorker(ctx context.Context, locations <-chan string, results chan<- locationResult) {
	for location := range locations {
		if err := ctx.Err(); err != nil {
			results <- locationResult{location: location, err: err}
			continue
		}
		results <- j.forecastLocation(ctx, location)
	}
}

func (j *ForecastJob) forecastLocation(ctx context.Context, location string) locationResult {
	locCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	forecast, err := j.forecaster.Forecast(locCtx, location)
	if err != nil {
		j.logger.Warn().
			Err(err).
			Str("location", location).
			Msg("forecast failed")
		return locationResult{location: location, err: err}
	}

	return locationResult{
		location: location,
		fallback: forecast.Source == waterquality.SourceDefault,
	}
}

func (j *ForecastJob) updateMetrics(result *JobResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.Forecasts += int64(result.Successful)
	j.metrics.Fallbacks += int64(result.Fallbacks)
	j.metrics.Failures += int64(result.Failed)
	j.metrics.LastFailed = int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *ForecastJob) GetMetrics() JobMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return JobMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		Forecasts:       j.metrics.Forecasts,
		Fallbacks:       j.metrics.Fallbacks,
		Failures:        j.metrics.Failures,
		LastFailed:      j.metrics.LastFailed,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *ForecastJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"forecasts":         m.Forecasts,
		"fallbacks":         m.Fallbacks,
		"failures":          m.Failures,
		"last_failed":       m.LastFailed,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}

func uniqueLocations(locations []string) []string {
	seen := make(map[string]bool, len(locations))
	out := make([]string, 0, len(locations))
	for _, l := range locations {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
