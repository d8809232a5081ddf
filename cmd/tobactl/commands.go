package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/auth"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/ingest"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality/reference"
)

// stdout receives command output.
var stdout io.Writer = os.Stdout

// ForecastCmd runs the forecaster on a workbook without touching storage.
type ForecastCmd struct {
	History   string `help:"Monitoring workbook (.xlsx)." type:"existingfile" required:""`
	Reference string `help:"Reference dataset (JSON array)." default:"data/training_data.json"`
	Location  string `help:"Forecast only this location."`
	Out       string `help:"Write results to FILE.xlsx or FILE.json instead of stdout." placeholder:"FILE"`
	Seed      uint64 `help:"Seed for reproducible noise (0 draws a random seed)."`
}

// Run implements the forecast command.
func (c *ForecastCmd) Run(g *Globals) error {
	series, err := readWorkbook(c.History, g)
	if err != nil {
		return err
	}

	locations := series.Locations()
	if c.Location != "" {
		name, ok := findLocation(series, c.Location)
		if !ok {
			return fmt.Errorf("location %q not found in %s", c.Location, c.History)
		}
		locations = []string{name}
	}

	cfg := waterquality.ForecasterConfig{
		Reference: reference.FileSource{Path: c.Reference},
		Logger:    g.Logger,
	}
	if c.Seed != 0 {
		cfg.Rand = waterquality.NewLockedRand(c.Seed)
	}
	forecaster := waterquality.NewForecaster(cfg)

	ctx := context.Background()
	results := make([]*waterquality.ForecastResult, 0, len(locations))
	for _, location := range locations {
		result := forecaster.Run(ctx, series, location)
		if result.Source == waterquality.SourceDefault {
			g.Logger.Warn().
				Str("location", location).
				Str("reason", result.FallbackReason).
				Msg("default profile used")
		}
		results = append(results, result)
	}

	var buf bytes.Buffer
	if strings.EqualFold(filepath.Ext(c.Out), ".xlsx") {
		err = ingest.WriteForecastWorkbook(&buf, results)
	} else {
		err = ingest.WriteJSON(&buf, results)
	}
	if err != nil {
		return err
	}
	return c.write(buf.Bytes())
}

func (c *ForecastCmd) write(data []byte) error {
	if c.Out == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(c.Out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.Out, err)
	}
	return nil
}

// StatsCmd prints per-location statistics of a workbook as JSON.
type StatsCmd struct {
	History  string `help:"Monitoring workbook (.xlsx)." type:"existingfile" required:""`
	Location string `help:"Describe only this location."`
}

// Run implements the stats command.
func (c *StatsCmd) Run(g *Globals) error {
	series, err := readWorkbook(c.History, g)
	if err != nil {
		return err
	}

	locations := series.Locations()
	if c.Location != "" {
		name, ok := findLocation(series, c.Location)
		if !ok {
			return fmt.Errorf("location %q not found in %s", c.Location, c.History)
		}
		locations = []string{name}
	}

	stats := make([]waterquality.LocationStatistics, 0, len(locations))
	for _, location := range locations {
		stats = append(stats, waterquality.Describe(location, series[location]))
	}
	return ingest.WriteJSON(stdout, stats)
}

// TokenCmd issues an operator JWT signed with the JWT_* environment.
type TokenCmd struct {
	Subject string        `help:"Operator name recorded in the token." required:""`
	TTL     time.Duration `help:"Token lifetime." default:"1h" name:"ttl"`
}

// Run implements the token command.
func (c *TokenCmd) Run(g *Globals) error {
	jwtService := auth.NewJWTService(auth.ConfigFromEnv())

	token, expiresAt, err := jwtService.IssueOperatorToken(c.Subject, c.TTL)
	if err != nil {
		return err
	}

	g.Logger.Info().
		Str("subject", c.Subject).
		Time("expires_at", expiresAt).
		Msg("operator token issued")

	_, err = fmt.Fprintln(stdout, token)
	return err
}

func readWorkbook(path string, g *Globals) (waterquality.HistoricalSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wb, err := ingest.ParseWorkbook(f, ingest.ParseOptions{Logger: g.Logger})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, w := range wb.Warnings {
		g.Logger.Warn().Str("file", path).Msg(w)
	}
	return wb.Series, nil
}

// findLocation matches name against the workbook's sheets ignoring case and
// spacing.
func findLocation(series waterquality.HistoricalSeries, name string) (string, bool) {
	want := waterquality.NormalizeLocationName(name)
	for _, location := range series.Locations() {
		if waterquality.NormalizeLocationName(location) == want {
			return location, true
		}
	}
	return "", false
}
