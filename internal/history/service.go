package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/telemetry"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

// Service errors.
var (
	ErrNothingToImport = errors.New("no records to import")
	ErrDateNotFound    = fmt.Errorf("date %w", ErrNotFound)
)

// ServiceConfig holds configuration for the history service.
type ServiceConfig struct {
	Repository Repository
	Forecaster *waterquality.Forecaster

	Logger zerolog.Logger

	// Metrics records forecast runs. Optional.
	Metrics *telemetry.ForecastMetrics

	// Clock times forecast runs (default: real clock).
	Clock clockwork.Clock

	// Rand places stored locations missing from the catalog (default:
	// math/rand/v2 global generator).
	Rand waterquality.RandSource
}

// Service ties stored history to the forecaster.
type Service struct {
	repo       Repository
	forecaster *waterquality.Forecaster
	logger     zerolog.Logger
	metrics    *telemetry.ForecastMetrics
	clock      clockwork.Clock
	rand       waterquality.RandSource
}

// NewService creates a new history service.
func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Service{
		repo:       cfg.Repository,
		forecaster: cfg.Forecaster,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		clock:      clock,
		rand:       cfg.Rand,
	}
}

// LocationImport reports how many records were stored for one location.
type LocationImport struct {
	Location string `json:"location"`
	Records  int    `json:"records"`
}

// ImportSummary reports the outcome of an import.
type ImportSummary struct {
	Locations []LocationImport `json:"locations"`
	Records   int              `json:"records"`
}

// Import upserts every location of series.
func (s *Service) Import(ctx context.Context, series waterquality.HistoricalSeries) (*ImportSummary, error) {
	summary := &ImportSummary{Locations: []LocationImport{}}

	for _, location := range series.Locations() {
		records := series[location]
		if len(records) == 0 {
			continue
		}
		if err := s.repo.SaveSeries(ctx, location, records); err != nil {
			return nil, fmt.Errorf("save %s: %w", location, err)
		}
		summary.Locations = append(summary.Locations, LocationImport{Location: location, Records: len(records)})
		summary.Records += len(records)
	}

	if summary.Records == 0 {
		return nil, ErrNothingToImport
	}

	s.logger.Info().
		Int("locations", len(summary.Locations)).
		Int("records", summary.Records).
		Msg("history imported")

	return summary, nil
}

// History returns the stored series of a location.
func (s *Service) History(ctx context.Context, location string) ([]waterquality.PollutionRecord, error) {
	_, records, err := s.loadSeries(ctx, location)
	return records, err
}

// loadSeries loads a location's history. A name that only matches a stored
// location after NormalizeLocationName, as Locations merges them, resolves
// to that stored location. It returns the stored name.
func (s *Service) loadSeries(ctx context.Context, location string) (string, []waterquality.PollutionRecord, error) {
	location = strings.TrimSpace(location)

	records, err := s.repo.LoadSeries(ctx, location)
	if !errors.Is(err, ErrLocationNotFound) {
		return location, records, err
	}

	stored, listErr := s.storedName(ctx, location)
	if listErr != nil {
		return location, nil, listErr
	}
	if stored == "" || stored == location {
		return location, nil, err
	}
	records, err = s.repo.LoadSeries(ctx, stored)
	return stored, records, err
}

// storedName returns the stored location matching name after normalization,
// or "" when there is none.
func (s *Service) storedName(ctx context.Context, name string) (string, error) {
	stored, err := s.repo.ListLocations(ctx)
	if err != nil {
		return "", err
	}
	want := waterquality.NormalizeLocationName(name)
	for _, summary := range stored {
		if waterquality.NormalizeLocationName(summary.Name) == want && summary.Records > 0 {
			return summary.Name, nil
		}
	}
	return "", nil
}

// All returns the stored history of every location.
func (s *Service) All(ctx context.Context) (waterquality.HistoricalSeries, error) {
	return s.repo.LoadAll(ctx)
}

// Forecast runs the forecaster on a location's stored history and stores the
// run. A catalog location without history still gets the default profile;
// any other unknown location returns ErrLocationNotFound.
func (s *Service) Forecast(ctx context.Context, location string) (*waterquality.ForecastResult, error) {
	location, records, err := s.loadSeries(ctx, location)
	switch {
	case errors.Is(err, ErrLocationNotFound):
		known, ok := waterquality.FindLocation(location)
		if !ok {
			return nil, ErrLocationNotFound
		}
		location = known.Name
	case err != nil:
		return nil, fmt.Errorf("load %s history: %w", location, err)
	}

	result := s.run(ctx, location, records)

	if err := s.repo.SaveForecast(ctx, result); err != nil {
		return nil, fmt.Errorf("save %s forecast: %w", location, err)
	}
	return result, nil
}

// ForecastHistory forecasts caller-supplied records without touching storage.
// Records are prepared like an imported sheet: sorted by date, missing
// indices computed and categories derived.
func (s *Service) ForecastHistory(ctx context.Context, location string, records []waterquality.PollutionRecord) *waterquality.ForecastResult {
	return s.run(ctx, strings.TrimSpace(location), waterquality.PrepareRecords(records))
}

// ForecastAll forecasts and stores every location with stored history.
func (s *Service) ForecastAll(ctx context.Context) ([]*waterquality.ForecastResult, error) {
	series, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	results := make([]*waterquality.ForecastResult, 0, len(series))
	for _, location := range series.Locations() {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := s.run(ctx, location, series[location])
		if err := s.repo.SaveForecast(ctx, result); err != nil {
			return results, fmt.Errorf("save %s forecast: %w", location, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// LatestForecast returns the most recent stored run for a location.
func (s *Service) LatestForecast(ctx context.Context, location string) (*waterquality.ForecastResult, error) {
	location = strings.TrimSpace(location)

	result, err := s.repo.LatestForecast(ctx, location)
	if !errors.Is(err, ErrForecastNotFound) {
		return result, err
	}
	stored, listErr := s.storedName(ctx, location)
	if listErr != nil {
		return nil, listErr
	}
	if stored == "" || stored == location {
		return nil, err
	}
	return s.repo.LatestForecast(ctx, stored)
}

// LatestForecasts returns the most recent stored run of every location.
func (s *Service) LatestForecasts(ctx context.Context) ([]*waterquality.ForecastResult, error) {
	return s.repo.LatestForecasts(ctx)
}

// Statistics describes a location's stored history.
func (s *Service) Statistics(ctx context.Context, location string) (*waterquality.LocationStatistics, error) {
	location, records, err := s.loadSeries(ctx, location)
	if err != nil {
		return nil, err
	}
	stats := waterquality.Describe(location, records)
	return &stats, nil
}

// SnapshotReport is the state of every location on one date.
type SnapshotReport struct {
	Date         waterquality.Date                          `json:"date"`
	Records      map[string]waterquality.PollutionRecord    `json:"records"`
	Distribution map[waterquality.Category]int              `json:"distribution"`
	Completeness map[string]waterquality.CompletenessReport `json:"completeness"`
}

// Snapshot reports every location on date. Returns ErrDateNotFound when no
// location has a record that day.
func (s *Service) Snapshot(ctx context.Context, date waterquality.Date) (*SnapshotReport, error) {
	series, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	found := false
	for _, d := range waterquality.Dates(series) {
		if d.String() == date.String() {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrDateNotFound
	}

	snapshot := waterquality.Snapshot(series, date)
	records := make([]waterquality.PollutionRecord, 0, len(snapshot))
	for _, location := range series.Locations() {
		records = append(records, snapshot[location])
	}

	return &SnapshotReport{
		Date:         date,
		Records:      snapshot,
		Distribution: waterquality.CategoryDistribution(records),
		Completeness: waterquality.Completeness(snapshot),
	}, nil
}

// LocationInfo is a sampling point with its stored history extent.
type LocationInfo struct {
	waterquality.Location
	Records   int                `json:"records"`
	FirstDate *waterquality.Date `json:"firstDate,omitempty"`
	LastDate  *waterquality.Date `json:"lastDate,omitempty"`
}

// Locations merges the catalog with the stored locations, catalog first.
func (s *Service) Locations(ctx context.Context) ([]LocationInfo, error) {
	stored, err := s.repo.ListLocations(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]LocationSummary, len(stored))
	for _, summary := range stored {
		byName[waterquality.NormalizeLocationName(summary.Name)] = summary
	}

	out := make([]LocationInfo, 0, len(stored)+8)
	seen := make(map[string]bool)
	for _, loc := range waterquality.SamplingLocations() {
		key := waterquality.NormalizeLocationName(loc.Name)
		if seen[key] {
			continue
		}
		seen[key] = true

		info := LocationInfo{Location: loc}
		if summary, ok := byName[key]; ok {
			info.Records = summary.Records
			info.FirstDate = summary.FirstDate
			info.LastDate = summary.LastDate
		}
		out = append(out, info)
	}

	for _, summary := range stored {
		key := waterquality.NormalizeLocationName(summary.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, LocationInfo{
			Location:  waterquality.LookupLocation(summary.Name, s.rand),
			Records:   summary.Records,
			FirstDate: summary.FirstDate,
			LastDate:  summary.LastDate,
		})
	}

	return out, nil
}

// StoredLocations returns the names of every location with stored history.
func (s *Service) StoredLocations(ctx context.Context) ([]string, error) {
	stored, err := s.repo.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(stored))
	for _, summary := range stored {
		names = append(names, summary.Name)
	}
	return names, nil
}

// Ping checks the repository is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) run(ctx context.Context, location string, records []waterquality.PollutionRecord) *waterquality.ForecastResult {
	start := s.clock.Now()
	result := s.forecaster.Run(ctx, waterquality.HistoricalSeries{location: records}, location)
	s.metrics.RecordRun(ctx, location, string(result.Source), s.clock.Since(start), len(result.Warnings))
	return result
}
