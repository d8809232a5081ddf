package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const upsertRecordSQL = `
	INSERT INTO water_quality_records (
		location, record_date,
		ammonia, bod, cod, dissolved_oxygen, nitrat, ph, tds, tss,
		pollution_index, category, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
	ON CONFLICT (location, record_date) DO UPDATE SET
		ammonia = EXCLUDED.ammonia,
		bod = EXCLUDED.bod,
		cod = EXCLUDED.cod,
		dissolved_oxygen = EXCLUDED.dissolved_oxygen,
		nitrat = EXCLUDED.nitrat,
		ph = EXCLUDED.ph,
		tds = EXCLUDED.tds,
		tss = EXCLUDED.tss,
		pollution_index = EXCLUDED.pollution_index,
		category = EXCLUDED.category,
		updated_at = now()
`

const recordColumns = `
	record_date, ammonia, bod, cod, dissolved_oxygen, nitrat, ph, tds, tss,
	pollution_index, category
`

// SaveSeries upserts records for a location in a single batch.
func (r *PostgresRepository) SaveSeries(ctx context.Context, location string, records []waterquality.PollutionRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(upsertRecordSQL,
			location,
			rec.Date.Time(),
			rec.Ammonia, rec.BOD, rec.COD, rec.DO, rec.Nitrat, rec.PH, rec.TDS, rec.TSS,
			rec.IndeksPencemaran,
			string(rec.Kategori),
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	for range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert %s records: %w", location, err)
		}
	}
	return br.Close()
}

// LoadSeries returns a location's records in ascending date order.
func (r *PostgresRepository) LoadSeries(ctx context.Context, location string) ([]waterquality.PollutionRecord, error) {
	query := `SELECT` + recordColumns + `
		FROM water_quality_records
		WHERE location = $1
		ORDER BY record_date
	`

	rows, err := r.pool.Query(ctx, query, location)
	if err != nil {
		return nil, err
	}
	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrLocationNotFound
	}
	return records, nil
}

// LoadAll returns the history of every location.
func (r *PostgresRepository) LoadAll(ctx context.Context) (waterquality.HistoricalSeries, error) {
	query := `SELECT location,` + recordColumns + `
		FROM water_quality_records
		ORDER BY location, record_date
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := make(waterquality.HistoricalSeries)
	for rows.Next() {
		var location string
		rec, err := scanRecordWith(rows, &location)
		if err != nil {
			return nil, err
		}
		series[location] = append(series[location], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return series, nil
}

// ListLocations summarizes every stored location.
func (r *PostgresRepository) ListLocations(ctx context.Context) ([]LocationSummary, error) {
	query := `
		SELECT location, COUNT(*), MIN(record_date), MAX(record_date)
		FROM water_quality_records
		GROUP BY location
		ORDER BY location
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LocationSummary, error) {
		var (
			s           LocationSummary
			first, last time.Time
		)
		if err := row.Scan(&s.Name, &s.Records, &first, &last); err != nil {
			return s, err
		}
		fd, ld := waterquality.Date(first), waterquality.Date(last)
		s.FirstDate, s.LastDate = &fd, &ld
		return s, nil
	})
}

// SaveForecast stores a run and its records in one transaction.
func (r *PostgresRepository) SaveForecast(ctx context.Context, result *waterquality.ForecastResult) error {
	runID, err := uuid.Parse(result.RunID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", result.RunID, err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		warnings := result.Warnings
		if warnings == nil {
			warnings = []string{}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO forecast_runs (run_id, location, source, fallback_reason, warnings, window_stats, generated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			runID,
			result.Location,
			string(result.Source),
			result.FallbackReason,
			warnings,
			result.Window,
			result.GeneratedAt,
		)
		if err != nil {
			return fmt.Errorf("insert forecast run: %w", err)
		}

		rows := make([][]any, 0, len(result.Series))
		for _, rec := range result.Series {
			rows = append(rows, []any{
				runID,
				rec.Date.Time(),
				rec.Ammonia, rec.BOD, rec.COD, rec.DO, rec.Nitrat, rec.PH, rec.TDS, rec.TSS,
				rec.IndeksPencemaran,
				string(rec.Kategori),
				rec.Confidence,
			})
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"forecast_records"},
			[]string{
				"run_id", "record_date",
				"ammonia", "bod", "cod", "dissolved_oxygen", "nitrat", "ph", "tds", "tss",
				"pollution_index", "category", "confidence",
			},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy forecast records: %w", err)
		}
		return nil
	})
}

const runColumns = `run_id::text, location, source, fallback_reason, warnings, window_stats, generated_at`

// LatestForecast returns the most recent run for a location.
func (r *PostgresRepository) LatestForecast(ctx context.Context, location string) (*waterquality.ForecastResult, error) {
	query := `SELECT ` + runColumns + `
		FROM forecast_runs
		WHERE location = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`

	result, err := scanRun(r.pool.QueryRow(ctx, query, location))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForecastNotFound
		}
		return nil, err
	}

	if err := r.loadForecastRecords(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// LatestForecasts returns the most recent run of every location.
func (r *PostgresRepository) LatestForecasts(ctx context.Context) ([]*waterquality.ForecastResult, error) {
	query := `SELECT DISTINCT ON (location) ` + runColumns + `
		FROM forecast_runs
		ORDER BY location, generated_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*waterquality.ForecastResult, error) {
		return scanRun(row)
	})
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		if err := r.loadForecastRecords(ctx, result); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Ping checks the database is reachable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) loadForecastRecords(ctx context.Context, result *waterquality.ForecastResult) error {
	query := `SELECT` + recordColumns + `, confidence
		FROM forecast_records
		WHERE run_id = $1
		ORDER BY record_date
	`

	rows, err := r.pool.Query(ctx, query, result.RunID)
	if err != nil {
		return err
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (waterquality.PollutionRecord, error) {
		var confidence *float64
		rec, err := scanRecordWith(row, nil, &confidence)
		rec.Confidence = confidence
		return rec, err
	})
	if err != nil {
		return fmt.Errorf("load forecast records: %w", err)
	}

	result.Series = records
	return nil
}

func scanRun(row pgx.Row) (*waterquality.ForecastResult, error) {
	var (
		result   waterquality.ForecastResult
		source   string
		warnings []string
	)
	err := row.Scan(
		&result.RunID,
		&result.Location,
		&source,
		&result.FallbackReason,
		&warnings,
		&result.Window,
		&result.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}
	result.Source = waterquality.ForecastSource(source)
	if len(warnings) > 0 {
		result.Warnings = warnings
	}
	return &result, nil
}

func scanRecord(row pgx.CollectableRow) (waterquality.PollutionRecord, error) {
	return scanRecordWith(row, nil)
}

// scanRecordWith scans the record columns, preceded by location when it is
// non-nil and followed by any extra destinations.
func scanRecordWith(row pgx.Row, location *string, extra ...any) (waterquality.PollutionRecord, error) {
	var (
		rec      waterquality.PollutionRecord
		date     time.Time
		category string
	)

	dest := make([]any, 0, 12+len(extra))
	if location != nil {
		dest = append(dest, location)
	}
	dest = append(dest,
		&date,
		&rec.Ammonia, &rec.BOD, &rec.COD, &rec.DO, &rec.Nitrat, &rec.PH, &rec.TDS, &rec.TSS,
		&rec.IndeksPencemaran,
		&category,
	)
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return rec, err
	}

	rec.Date = waterquality.NewDate(date.Year(), date.Month(), date.Day())
	rec.Kategori = waterquality.Category(category)
	return rec, nil
}
