package waterquality

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	// ForecastDays is the number of daily records in every forecast series.
	ForecastDays = 31

	// DefaultConfidence is the confidence of every default-profile record.
	DefaultConfidence = 0.60

	initialConfidence  = 0.85
	confidenceDecayDay = 0.012
)

// DefaultStartDate is the first forecast day.
var DefaultStartDate = NewDate(2026, time.January, 1)

// Fallback reasons reported on default-profile results.
const (
	ReasonReferenceUnavailable = "reference dataset unavailable"
	ReasonReferenceEmpty       = "reference dataset empty"
	ReasonNoHistory            = "no positive pollution index readings"
)

// ForecasterConfig holds configuration for a Forecaster.
type ForecasterConfig struct {
	// Reference loads the labeled reference dataset on every run.
	Reference ReferenceSource

	// Logger for diagnostics.
	Logger zerolog.Logger

	// Rand supplies noise draws (default: math/rand/v2 global generator).
	// It must be safe for concurrent use when runs overlap.
	Rand RandSource

	// StartDate is the first forecast day (default: DefaultStartDate).
	StartDate Date

	// Clock stamps results (default: real clock).
	Clock clockwork.Clock
}

// Forecaster produces 31-day forecasts per location.
type Forecaster struct {
	reference ReferenceSource
	logger    zerolog.Logger
	rand      RandSource
	start     Date
	clock     clockwork.Clock
}

// NewForecaster creates a new Forecaster.
func NewForecaster(cfg ForecasterConfig) *Forecaster {
	rng := cfg.Rand
	if rng == nil {
		rng = globalRand{}
	}

	start := cfg.StartDate
	if start.Time().IsZero() {
		start = DefaultStartDate
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Forecaster{
		reference: cfg.Reference,
		logger:    cfg.Logger,
		rand:      rng,
		start:     start,
		clock:     clock,
	}
}

// Forecast returns the 31-day forecast series for a location.
func (f *Forecaster) Forecast(ctx context.Context, history HistoricalSeries, location string) ForecastSeries {
	return f.Run(ctx, history, location).Series
}

// DefaultProfile returns a 31-day series built from the fixed baseline profile.
func (f *Forecaster) DefaultProfile() ForecastSeries {
	return DefaultProfile(f.start, f.rand)
}

// Run forecasts a location and reports how the series was produced. It never
// fails: missing reference data or history routes to the default profile.
func (f *Forecaster) Run(ctx context.Context, history HistoricalSeries, location string) *ForecastResult {
	result := &ForecastResult{
		RunID:       uuid.New().String(),
		Location:    location,
		Source:      SourceModel,
		GeneratedAt: f.clock.Now(),
	}

	logger := f.logger.With().
		Str("location", location).
		Str("run_id", result.RunID).
		Logger()

	models, reason := f.loadModels(ctx, logger)
	if reason != "" {
		return f.fallback(result, reason, logger)
	}

	indices := PositiveIndices(history.Indices(location))
	if len(indices) == 0 {
		return f.fallback(result, ReasonNoHistory, logger)
	}

	window := AnalyzeWindow(indices)
	result.Window = &window

	logger.Debug().
		Int("readings", window.Count).
		Float64("min", window.Min).
		Float64("max", window.Max).
		Float64("mean", window.Mean).
		Float64("slope", window.Slope).
		Msg("history window analyzed")

	if window.Degenerate() {
		logger.Warn().
			Float64("index", window.Mean).
			Msg("all historical indices identical, forecast follows a single value")
	}

	gaps := make(map[Parameter]map[Category]bool)
	series := make(ForecastSeries, 0, ForecastDays)

	for day := 0; day < ForecastDays; day++ {
		index := round2(projectIndex(window, day, f.rand))
		category := Classify(index)

		var params ParameterVector
		for _, p := range AllParameters {
			v, ok := SynthesizeParameter(index, p, models, f.rand)
			if !ok && !gaps[p][category] {
				if gaps[p] == nil {
					gaps[p] = make(map[Category]bool)
				}
				gaps[p][category] = true
				logger.Warn().
					Str("parameter", string(p)).
					Str("category", string(category)).
					Msg("no reference model, parameter set to 0")
			}
			params.Set(p, v)
		}

		confidence := ForecastConfidence(day)
		record := PollutionRecord{
			Date:             f.start.AddDays(day),
			ParameterVector:  params,
			IndeksPencemaran: index,
			Kategori:         category,
			Confidence:       &confidence,
		}

		if warnings := Validate(record); len(warnings) > 0 {
			logger.Warn().
				Str("date", record.Date.String()).
				Strs("warnings", warnings).
				Msg("forecast record failed plausibility checks")
			for _, w := range warnings {
				result.Warnings = append(result.Warnings, record.Date.String()+": "+w)
			}
		}

		series = append(series, record)
	}

	result.Series = series

	logger.Info().
		Int("records", len(series)).
		Int("warnings", len(result.Warnings)).
		Msg("forecast generated")

	return result
}

// loadModels returns the fitted models or the reason they are unusable.
func (f *Forecaster) loadModels(ctx context.Context, logger zerolog.Logger) (ReferenceModels, string) {
	if f.reference == nil {
		return nil, ReasonReferenceUnavailable
	}

	samples, err := f.reference.LoadSamples(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load reference dataset")
		return nil, ReasonReferenceUnavailable
	}
	if len(samples) == 0 {
		return nil, ReasonReferenceEmpty
	}

	models := BuildModels(samples)
	for _, p := range AllParameters {
		ev := logger.Debug().Str("parameter", string(p))
		for _, c := range AllCategories {
			if m, ok := models.Lookup(p, c); ok {
				ev = ev.Float64(string(c)+"_r2", m.RSquared)
			}
		}
		ev.Msg("reference model fitted")
	}

	return models, ""
}

func (f *Forecaster) fallback(result *ForecastResult, reason string, logger zerolog.Logger) *ForecastResult {
	logger.Warn().Str("reason", reason).Msg("using default forecast profile")
	result.Source = SourceDefault
	result.FallbackReason = reason
	result.Series = DefaultProfile(f.start, f.rand)
	return result
}

// ForecastConfidence is the confidence assigned to the record day days after
// the start. It decays linearly and is not floored.
func ForecastConfidence(day int) float64 {
	return initialConfidence - confidenceDecayDay*float64(day)
}

// DefaultBaseline is the parameter profile used when nothing can be learned.
var DefaultBaseline = ParameterVector{
	Ammonia: 0.3,
	BOD:     1.5,
	COD:     5.0,
	DO:      7.0,
	Nitrat:  5.0,
	PH:      7.5,
	TDS:     300,
	TSS:     15,
}

const (
	defaultBaselineIndex   = 0.5
	defaultParameterSpread = 0.15
	defaultIndexSpread     = 0.2
)

// DefaultProfile builds a 31-day series around DefaultBaseline starting at
// start. Every record is Baik with confidence DefaultConfidence.
func DefaultProfile(start Date, rng RandSource) ForecastSeries {
	if rng == nil {
		rng = globalRand{}
	}

	series := make(ForecastSeries, 0, ForecastDays)
	for day := 0; day < ForecastDays; day++ {
		var params ParameterVector
		for _, p := range AllParameters {
			base := DefaultBaseline.Get(p)
			params.Set(p, maxZero(round2(base+noise(rng, base*defaultParameterSpread))))
		}

		confidence := DefaultConfidence
		series = append(series, PollutionRecord{
			Date:             start.AddDays(day),
			ParameterVector:  params,
			IndeksPencemaran: round2(maxZero(defaultBaselineIndex + noise(rng, defaultIndexSpread))),
			Kategori:         CategoryBaik,
			Confidence:       &confidence,
		})
	}
	return series
}

func maxZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
