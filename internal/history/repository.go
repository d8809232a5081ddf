// Package history stores monitoring series and forecast runs and ties them
// to the forecaster.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

// Repository errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrLocationNotFound = fmt.Errorf("location %w", ErrNotFound)
	ErrForecastNotFound = fmt.Errorf("forecast %w", ErrNotFound)
)

// LocationSummary describes the stored history of one location.
type LocationSummary struct {
	Name      string             `json:"name"`
	Records   int                `json:"records"`
	FirstDate *waterquality.Date `json:"firstDate,omitempty"`
	LastDate  *waterquality.Date `json:"lastDate,omitempty"`
}

// Repository defines persistence for monitoring history and forecast runs.
type Repository interface {
	// SaveSeries upserts records for a location keyed by date.
	SaveSeries(ctx context.Context, location string, records []waterquality.PollutionRecord) error

	// LoadSeries returns a location's records in ascending date order.
	// Returns ErrLocationNotFound when nothing is stored.
	LoadSeries(ctx context.Context, location string) ([]waterquality.PollutionRecord, error)

	// LoadAll returns the history of every location.
	LoadAll(ctx context.Context) (waterquality.HistoricalSeries, error)

	// ListLocations summarizes every stored location, sorted by name.
	ListLocations(ctx context.Context) ([]LocationSummary, error)

	// SaveForecast stores a forecast run with its series.
	SaveForecast(ctx context.Context, result *waterquality.ForecastResult) error

	// LatestForecast returns the most recent run for a location.
	// Returns ErrForecastNotFound when none exists.
	LatestForecast(ctx context.Context, location string) (*waterquality.ForecastResult, error)

	// LatestForecasts returns the most recent run of every location.
	LatestForecasts(ctx context.Context) ([]*waterquality.ForecastResult, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}

// InMemoryRepository is an in-memory implementation of Repository, used for
// tests and STORAGE_BACKEND=memory.
type InMemoryRepository struct {
	mu        sync.RWMutex
	series    map[string]map[string]waterquality.PollutionRecord
	forecasts map[string]*waterquality.ForecastResult
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		series:    make(map[string]map[string]waterquality.PollutionRecord),
		forecasts: make(map[string]*waterquality.ForecastResult),
	}
}

// SaveSeries upserts records for a location.
func (r *InMemoryRepository) SaveSeries(_ context.Context, location string, records []waterquality.PollutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byDate, ok := r.series[location]
	if !ok {
		byDate = make(map[string]waterquality.PollutionRecord, len(records))
		r.series[location] = byDate
	}
	for _, rec := range records {
		rec.Confidence = nil
		byDate[rec.Date.String()] = rec
	}
	return nil
}

// LoadSeries returns a location's records in ascending date order.
func (r *InMemoryRepository) LoadSeries(_ context.Context, location string) ([]waterquality.PollutionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byDate, ok := r.series[location]
	if !ok || len(byDate) == 0 {
		return nil, ErrLocationNotFound
	}
	return sortedRecords(byDate), nil
}

// LoadAll returns the history of every location.
func (r *InMemoryRepository) LoadAll(_ context.Context) (waterquality.HistoricalSeries, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(waterquality.HistoricalSeries, len(r.series))
	for location, byDate := range r.series {
		out[location] = sortedRecords(byDate)
	}
	return out, nil
}

// ListLocations summarizes every stored location.
func (r *InMemoryRepository) ListLocations(_ context.Context) ([]LocationSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]LocationSummary, 0, len(r.series))
	for location, byDate := range r.series {
		records := sortedRecords(byDate)
		summary := LocationSummary{Name: location, Records: len(records)}
		if len(records) > 0 {
			first, last := records[0].Date, records[len(records)-1].Date
			summary.FirstDate = &first
			summary.LastDate = &last
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SaveForecast stores a forecast run. Only the latest run per location is
// kept.
func (r *InMemoryRepository) SaveForecast(_ context.Context, result *waterquality.ForecastResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.forecasts[result.Location]; ok && prev.GeneratedAt.After(result.GeneratedAt) {
		return nil
	}
	r.forecasts[result.Location] = copyResult(result)
	return nil
}

// LatestForecast returns the most recent run for a location.
func (r *InMemoryRepository) LatestForecast(_ context.Context, location string) (*waterquality.ForecastResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result, ok := r.forecasts[location]
	if !ok {
		return nil, ErrForecastNotFound
	}
	return copyResult(result), nil
}

// LatestForecasts returns the most recent run of every location, sorted by
// location.
func (r *InMemoryRepository) LatestForecasts(_ context.Context) ([]*waterquality.ForecastResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*waterquality.ForecastResult, 0, len(r.forecasts))
	for _, result := range r.forecasts {
		out = append(out, copyResult(result))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out, nil
}

// Ping always succeeds.
func (r *InMemoryRepository) Ping(context.Context) error {
	return nil
}

func sortedRecords(byDate map[string]waterquality.PollutionRecord) []waterquality.PollutionRecord {
	records := make([]waterquality.PollutionRecord, 0, len(byDate))
	for _, rec := range byDate {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records
}

func copyResult(src *waterquality.ForecastResult) *waterquality.ForecastResult {
	dst := *src
	dst.Series = make(waterquality.ForecastSeries, len(src.Series))
	copy(dst.Series, src.Series)
	dst.Warnings = append([]string(nil), src.Warnings...)
	if src.Window != nil {
		w := *src.Window
		dst.Window = &w
	}
	return &dst
}
