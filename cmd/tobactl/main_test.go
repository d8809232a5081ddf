package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/auth"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/ingest"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	prev := stdout
	stdout = &out
	t.Cleanup(func() { stdout = prev })

	var cli CLI
	parser, err := kong.New(&cli, kong.Name("tobactl"), kong.Vars{"version": "test"})
	require.NoError(t, err)

	ctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	err = ctx.Run(&Globals{Logger: zerolog.Nop()})
	return out.String(), err
}

func writeFixtures(t *testing.T) (workbook, referencePath string) {
	t.Helper()
	dir := t.TempDir()

	start := waterquality.NewDate(2025, time.March, 1)
	series := waterquality.HistoricalSeries{}
	for _, location := range []string{"KLHK11", "Parapat"} {
		for day := 0; day < 6; day++ {
			idx := 1.1 + 0.25*float64(day)
			series[location] = append(series[location], waterquality.PollutionRecord{
				Date:             start.AddDays(day),
				ParameterVector:  waterquality.ParameterVector{BOD: 2 + float64(day)/2, PH: 7.2, DO: 6.1},
				IndeksPencemaran: idx,
				Kategori:         waterquality.Classify(idx),
			})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, ingest.WriteHistoryWorkbook(&buf, series))
	workbook = filepath.Join(dir, "history.xlsx")
	require.NoError(t, os.WriteFile(workbook, buf.Bytes(), 0o600))

	var samples []waterquality.ReferenceSample
	for _, idx := range []float64{0.3, 0.7, 0.95, 1.4, 2.2, 3.1, 4.4, 5.5, 7, 9.8, 12} {
		s := waterquality.ReferenceSample{IndeksPencemaran: idx, Kategori: waterquality.Classify(idx)}
		for i, p := range waterquality.AllParameters {
			s.Set(p, float64(i+1)+idx*0.8)
		}
		samples = append(samples, s)
	}
	data, err := json.Marshal(samples)
	require.NoError(t, err)
	referencePath = filepath.Join(dir, "training_data.json")
	require.NoError(t, os.WriteFile(referencePath, data, 0o600))

	return workbook, referencePath
}

func TestForecastCmd_JSONToStdout(t *testing.T) {
	workbook, ref := writeFixtures(t)

	out, err := run(t, "forecast", "--history", workbook, "--reference", ref, "--location", "parapat", "--seed", "11")
	require.NoError(t, err)

	var results []waterquality.ForecastResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Parapat", results[0].Location)
	assert.Equal(t, waterquality.SourceModel, results[0].Source)
	assert.Len(t, results[0].Series, waterquality.ForecastDays)
}

func TestForecastCmd_SeedIsReproducible(t *testing.T) {
	workbook, ref := writeFixtures(t)

	first, err := run(t, "forecast", "--history", workbook, "--reference", ref, "--location", "KLHK11", "--seed", "5")
	require.NoError(t, err)
	second, err := run(t, "forecast", "--history", workbook, "--reference", ref, "--location", "KLHK11", "--seed", "5")
	require.NoError(t, err)

	var a, b []waterquality.ForecastResult
	require.NoError(t, json.Unmarshal([]byte(first), &a))
	require.NoError(t, json.Unmarshal([]byte(second), &b))
	assert.Equal(t, a[0].Series, b[0].Series)
}

func TestForecastCmd_XLSXOut(t *testing.T) {
	workbook, ref := writeFixtures(t)
	out := filepath.Join(t.TempDir(), "forecast.xlsx")

	stdoutText, err := run(t, "forecast", "--history", workbook, "--reference", ref, "--out", out)
	require.NoError(t, err)
	assert.Empty(t, stdoutText)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestForecastCmd_MissingReferenceFallsBack(t *testing.T) {
	workbook, _ := writeFixtures(t)

	out, err := run(t, "forecast", "--history", workbook, "--reference", filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)

	var results []waterquality.ForecastResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, waterquality.SourceDefault, r.Source)
	}
}

func TestForecastCmd_UnknownLocation(t *testing.T) {
	workbook, ref := writeFixtures(t)

	_, err := run(t, "forecast", "--history", workbook, "--reference", ref, "--location", "Atlantis")
	assert.ErrorContains(t, err, "Atlantis")
}

func TestStatsCmd(t *testing.T) {
	workbook, _ := writeFixtures(t)

	out, err := run(t, "stats", "--history", workbook)
	require.NoError(t, err)

	var stats []waterquality.LocationStatistics
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, 2)
	assert.Equal(t, "KLHK11", stats[0].Location)
	assert.Equal(t, 6, stats[0].Records)
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "cli-test-key")
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("JWT_AUDIENCE", "")

	out, err := run(t, "token", "--subject", "ops", "--ttl", "2h")
	require.NoError(t, err)

	claims, err := auth.NewJWTService(auth.ConfigFromEnv()).ValidateOperatorToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
}

func TestTokenCmd_RequiresSubject(t *testing.T) {
	_, err := run(t, "token")
	assert.Error(t, err)
}
