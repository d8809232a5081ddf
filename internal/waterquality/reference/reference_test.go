package reference_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/provider/resilience"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality/reference"
)

const datasetJSON = `[
  {"Ammonia": 0.2, "BOD": 1.1, "pH": 7.4, "Indeks_Pencemaran": 0.4, "Kategori": "Baik"},
  {"Ammonia": 0.3, "BOD": 1.5, "pH": 7.6, "Indeks_Pencemaran": 0.8, "Kategori": "Baik"},
  {"Ammonia": 1.0, "BOD": 4.0, "Indeks_Pencemaran": 2.5, "Kategori": "Sedang"},
  {"Ammonia": 1.2, "BOD": 5.0, "Indeks_Pencemaran": 3.5}
]`

type fakeSource struct {
	mu      sync.Mutex
	samples []waterquality.ReferenceSample
	err     error
	calls   int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) LoadSamples(_ context.Context) ([]waterquality.ReferenceSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.samples, nil
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func ptr(v float64) *float64 { return &v }

func samples(n int) []waterquality.ReferenceSample {
	out := make([]waterquality.ReferenceSample, n)
	for i := range out {
		idx := 0.1 * float64(i+1)
		out[i] = waterquality.ReferenceSample{
			BOD:              ptr(2*idx + 1),
			IndeksPencemaran: idx,
			Kategori:         waterquality.Classify(idx),
		}
	}
	return out
}

func newService(src reference.Source, clock clockwork.Clock) *reference.Service {
	return reference.NewService(reference.ServiceConfig{
		Source:          src,
		Logger:          zerolog.Nop(),
		Clock:           clock,
		CacheTTL:        10 * time.Minute,
		StaleIfErrorTTL: time.Hour,
	})
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training_data.json")
	require.NoError(t, os.WriteFile(path, []byte(datasetJSON), 0o600))

	src := reference.FileSource{Path: path}
	got, err := src.LoadSamples(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 4)

	v, ok := got[0].Value(waterquality.ParamPH)
	assert.True(t, ok)
	assert.Equal(t, 7.4, v)

	_, ok = got[2].Value(waterquality.ParamPH)
	assert.False(t, ok)

	assert.Equal(t, waterquality.CategoryBaik, got[3].Label())
	assert.Equal(t, "file:"+path, src.Name())
}

func TestFileSource_Errors(t *testing.T) {
	_, err := reference.FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.LoadSamples(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"}`), 0o600))
	_, err = reference.FileSource{Path: path}.LoadSamples(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(datasetJSON))
	}))
	defer server.Close()

	client := resilience.NewClient(resilience.DefaultClientConfig("reference"))
	src := reference.NewHTTPSource(server.URL, client)

	got, err := src.LoadSamples(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, "http:"+server.URL, src.Name())
}

func TestService_CachesWithinTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &fakeSource{samples: samples(5)}
	svc := newService(src, clock)

	for i := 0; i < 3; i++ {
		got, err := svc.LoadSamples(context.Background())
		require.NoError(t, err)
		assert.Len(t, got, 5)
	}
	assert.Equal(t, 1, src.callCount())

	clock.Advance(11 * time.Minute)
	_, err := svc.LoadSamples(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.callCount())
}

func TestService_StaleIfError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &fakeSource{samples: samples(3)}
	svc := newService(src, clock)

	_, err := svc.LoadSamples(context.Background())
	require.NoError(t, err)

	src.fail(errors.New("upstream down"))
	clock.Advance(30 * time.Minute)

	got, err := svc.LoadSamples(context.Background())
	require.NoError(t, err, "stale samples are served within the stale window")
	assert.Len(t, got, 3)

	status := svc.CacheStatus()
	assert.True(t, status.IsExpired)
	assert.False(t, status.IsStale)

	clock.Advance(time.Hour)
	_, err = svc.LoadSamples(context.Background())
	assert.ErrorIs(t, err, waterquality.ErrReferenceUnavailable)
	assert.True(t, svc.CacheStatus().IsStale)
}

func TestService_ColdFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("no route to host")}
	svc := newService(src, clockwork.NewFakeClock())

	_, err := svc.LoadSamples(context.Background())
	assert.ErrorIs(t, err, waterquality.ErrReferenceUnavailable)
	assert.False(t, svc.CacheStatus().HasData)

	_, err = reference.NewService(reference.ServiceConfig{}).LoadSamples(context.Background())
	assert.ErrorIs(t, err, waterquality.ErrReferenceUnavailable)
}

func TestService_ReplaceAndInvalidate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &fakeSource{samples: samples(2)}
	svc := newService(src, clock)

	assert.ErrorIs(t, svc.Replace(nil), waterquality.ErrEmptyDataset)

	require.NoError(t, svc.Replace(samples(9)))
	clock.Advance(48 * time.Hour)

	got, err := svc.LoadSamples(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 9)
	assert.Equal(t, 0, src.callCount())

	status := svc.CacheStatus()
	assert.True(t, status.Replaced)
	assert.Equal(t, reference.UploadSource, status.Source)
	assert.Equal(t, 9, status.SampleCount)
	assert.False(t, status.IsExpired)

	svc.Invalidate()
	assert.False(t, svc.CacheStatus().HasData)

	got, err = svc.LoadSamples(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "fake", svc.CacheStatus().Source)
}

func TestService_EmptyDataset(t *testing.T) {
	svc := newService(&fakeSource{}, clockwork.NewFakeClock())

	got, err := svc.LoadSamples(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = svc.Models(context.Background())
	assert.ErrorIs(t, err, waterquality.ErrEmptyDataset)

	_, err = svc.Sensitivity(context.Background())
	assert.ErrorIs(t, err, waterquality.ErrEmptyDataset)

	assert.ErrorIs(t, svc.Ping(context.Background()), waterquality.ErrEmptyDataset)
}

func TestService_Ping(t *testing.T) {
	src := &fakeSource{samples: samples(3)}
	svc := newService(src, clockwork.NewFakeClock())
	require.NoError(t, svc.Ping(context.Background()))

	down := newService(&fakeSource{err: errors.New("timeout")}, clockwork.NewFakeClock())
	assert.ErrorIs(t, down.Ping(context.Background()), waterquality.ErrReferenceUnavailable)
}

func TestService_Models(t *testing.T) {
	svc := newService(&fakeSource{samples: samples(5)}, clockwork.NewFakeClock())

	models, err := svc.Models(context.Background())
	require.NoError(t, err)

	m, ok := models.Lookup(waterquality.ParamBOD, waterquality.CategoryBaik)
	require.True(t, ok)
	assert.Equal(t, 5, m.SampleCount)
	assert.InDelta(t, 2.0, m.Slope, 1e-9)
}

func TestService_FeedsForecaster(t *testing.T) {
	svc := newService(&fakeSource{err: errors.New("offline")}, clockwork.NewFakeClock())
	forecaster := waterquality.NewForecaster(waterquality.ForecasterConfig{
		Reference: svc,
		Logger:    zerolog.Nop(),
	})

	history := waterquality.HistoricalSeries{"KLHK11": {{
		Date:             waterquality.NewDate(2025, 6, 1),
		IndeksPencemaran: 1.2,
	}}}

	result := forecaster.Run(context.Background(), history, "KLHK11")
	assert.Equal(t, waterquality.SourceDefault, result.Source)
	assert.Equal(t, waterquality.ReasonReferenceUnavailable, result.FallbackReason)
}

func TestSourceConfigFromEnv(t *testing.T) {
	t.Setenv("REFERENCE_DATA_URL", "")
	t.Setenv("REFERENCE_DATA_PATH", "")
	t.Setenv("REFERENCE_CACHE_TTL", "")

	cfg := reference.SourceConfigFromEnv()
	assert.Empty(t, cfg.URL)
	assert.Equal(t, reference.DefaultDataPath, cfg.Path)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)

	t.Setenv("REFERENCE_DATA_URL", "https://data.example.com/training.json")
	t.Setenv("REFERENCE_CACHE_TTL", "90s")

	cfg = reference.SourceConfigFromEnv()
	assert.Equal(t, "https://data.example.com/training.json", cfg.URL)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)

	t.Setenv("REFERENCE_CACHE_TTL", "soon")
	assert.Equal(t, 10*time.Minute, reference.SourceConfigFromEnv().CacheTTL)
}

func TestNewSource(t *testing.T) {
	src := reference.NewSource(reference.SourceConfig{Path: "testdata/samples.json"}, nil, zerolog.Nop())
	assert.Equal(t, "file:testdata/samples.json", src.Name())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(datasetJSON))
	}))
	defer server.Close()

	registry := resilience.NewRegistry(nil)
	src = reference.NewSource(reference.SourceConfig{URL: server.URL, Path: "ignored.json"}, registry, zerolog.Nop())
	assert.Equal(t, "http:"+server.URL, src.Name())

	got, err := src.LoadSamples(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 4)

	health, ok := registry.Health("reference-data")
	require.True(t, ok)
	assert.Equal(t, resilience.StatusHealthy, health.Status)
	assert.NotNil(t, health.LastSuccessAt)
}
