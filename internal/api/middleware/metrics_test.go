package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/middleware"
)

func newMetricsRouter(t *testing.T) (http.Handler, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	metrics, err := middleware.NewMetricsFrom(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/v1/locations/{location}/history", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"records":[]}`))
	})
	r.Post("/v1/forecasts", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	return r, reader
}

// requestCounts returns http.server.request.total keyed by route and status.
func requestCounts(t *testing.T, reader *sdkmetric.ManualReader) map[[2]string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := make(map[[2]string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http.server.request.total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				route, _ := dp.Attributes.Value(attribute.Key("http.route"))
				status, _ := dp.Attributes.Value(attribute.Key("http.status_code"))
				counts[[2]string{route.AsString(), status.AsString()}] += dp.Value
			}
		}
	}
	return counts
}

func TestNewMetrics(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)
	assert.NotNil(t, metrics)
}

func TestMetrics_CountsByRoutePattern(t *testing.T) {
	router, reader := newMetricsRouter(t)

	for _, location := range []string{"KLHK11", "KLHK13", "Parapat"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/locations/"+location+"/history", http.NoBody))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/forecasts", http.NoBody))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/stations", http.NoBody))

	counts := requestCounts(t, reader)
	assert.Equal(t, int64(3), counts[[2]string{"/v1/locations/{location}/history", "200"}])
	assert.Equal(t, int64(1), counts[[2]string{"/v1/forecasts", "400"}])
	assert.Equal(t, int64(1), counts[[2]string{middleware.UnmatchedRoute, "404"}])
}

func TestMetrics_PassesResponseThrough(t *testing.T) {
	router, _ := newMetricsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/locations/Balige/history", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"records":[]}`, rec.Body.String())
}

func TestRoutePattern(t *testing.T) {
	var pattern string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			pattern = middleware.RoutePattern(req)
		})
	})
	r.Get("/v1/locations/{location}/history", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/locations/KLHK11/history", http.NoBody))
	assert.Equal(t, "/v1/locations/{location}/history", pattern)

	bare := httptest.NewRequest(http.MethodGet, "/anything", http.NoBody)
	assert.Equal(t, middleware.UnmatchedRoute, middleware.RoutePattern(bare))
}
