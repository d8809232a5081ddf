package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const forecastMeterName = "github.com/Zharif-1135/Toba-Water-Monitor/internal/telemetry"

// Reference fetch outcomes.
const (
	FetchFresh  = "fresh"
	FetchCached = "cached"
	FetchStale  = "stale"
	FetchFailed = "failed"
)

// ForecastMetrics holds the instruments for forecast runs and reference
// dataset fetches. A nil *ForecastMetrics records nothing.
type ForecastMetrics struct {
	runs             metric.Int64Counter
	duration         metric.Float64Histogram
	warnings         metric.Int64Counter
	referenceFetches metric.Int64Counter
}

// NewForecastMetrics creates the forecast instruments on the global meter
// provider.
func NewForecastMetrics() (*ForecastMetrics, error) {
	meter := otel.Meter(forecastMeterName)

	runs, err := meter.Int64Counter(
		"forecast.runs.total",
		metric.WithDescription("Number of forecast runs by source"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"forecast.duration",
		metric.WithDescription("Duration of forecast runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	warnings, err := meter.Int64Counter(
		"forecast.validation.warnings",
		metric.WithDescription("Plausibility warnings raised on forecast records"),
		metric.WithUnit("{warning}"),
	)
	if err != nil {
		return nil, err
	}

	referenceFetches, err := meter.Int64Counter(
		"reference.fetch.total",
		metric.WithDescription("Reference dataset loads by result"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	return &ForecastMetrics{
		runs:             runs,
		duration:         duration,
		warnings:         warnings,
		referenceFetches: referenceFetches,
	}, nil
}

// RecordRun records one completed forecast run.
func (m *ForecastMetrics) RecordRun(ctx context.Context, location, source string, elapsed time.Duration, warnings int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("forecast.source", source),
		attribute.String("forecast.location", location),
	)
	m.runs.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if warnings > 0 {
		m.warnings.Add(ctx, int64(warnings), attrs)
	}
}

// RecordReferenceFetch records how a reference dataset load was served.
func (m *ForecastMetrics) RecordReferenceFetch(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.referenceFetches.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
