package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/middleware"
)

type limitedRequest struct {
	remoteAddr string
	token      string
}

func sendLimited(handler http.Handler, req limitedRequest) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/v1/history:import", http.NoBody)
	r.RemoteAddr = req.remoteAddr
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return rec
}

func TestRateLimitByIP(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestLimit: 3,
		WindowLength: time.Minute,
	})(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, sendLimited(handler, limitedRequest{remoteAddr: "10.0.0.1:1234"}).Code, "request %d", i+1)
	}

	rec := sendLimited(handler, limitedRequest{remoteAddr: "10.0.0.1:5678"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Other clients keep their own budget.
	assert.Equal(t, http.StatusOK, sendLimited(handler, limitedRequest{remoteAddr: "10.0.0.2:1234"}).Code)
}

func TestRateLimitByIP_RetryAfterFollowsWindow(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestLimit: 1,
		WindowLength: 10 * time.Second,
	})(okHandler())

	sendLimited(handler, limitedRequest{remoteAddr: "10.0.1.1:1"})
	rec := sendLimited(handler, limitedRequest{remoteAddr: "10.0.1.1:1"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))
}

func TestRateLimitByOperator_SharedAcrossIPs(t *testing.T) {
	jwtService := newTestJWTService()
	token, _, err := jwtService.IssueOperatorToken("ops-balige", time.Hour)
	require.NoError(t, err)

	handler := middleware.Auth(jwtService)(
		middleware.RateLimitByOperator(middleware.RateLimitConfig{
			RequestLimit: 2,
			WindowLength: time.Minute,
		})(okHandler()),
	)

	assert.Equal(t, http.StatusOK, sendLimited(handler, limitedRequest{"192.168.7.1:1", token}).Code)
	assert.Equal(t, http.StatusOK, sendLimited(handler, limitedRequest{"192.168.7.2:1", token}).Code)
	assert.Equal(t, http.StatusTooManyRequests, sendLimited(handler, limitedRequest{"192.168.7.3:1", token}).Code)
}

func TestRateLimitByOperator_FallsBackToIP(t *testing.T) {
	handler := middleware.RateLimitByOperator(middleware.RateLimitConfig{
		RequestLimit: 1,
		WindowLength: time.Minute,
	})(okHandler())

	assert.Equal(t, http.StatusOK, sendLimited(handler, limitedRequest{remoteAddr: "198.51.100.1:1"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, sendLimited(handler, limitedRequest{remoteAddr: "198.51.100.1:2"}).Code)
	assert.Equal(t, http.StatusOK, sendLimited(handler, limitedRequest{remoteAddr: "198.51.100.2:1"}).Code)
}

func TestRateLimit_ProblemResponse(t *testing.T) {
	handler := middleware.RequestID(middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestLimit: 1,
		WindowLength: time.Minute,
	})(okHandler()))

	sendLimited(handler, limitedRequest{remoteAddr: "203.0.113.1:1"})
	rec := sendLimited(handler, limitedRequest{remoteAddr: "203.0.113.1:1"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "too-many-requests")
	assert.Contains(t, body, "rate limit exceeded")
	assert.Contains(t, body, "/v1/history:import")
}

func TestDefaultRateLimitConfigs(t *testing.T) {
	assert.Equal(t, 10, middleware.UploadRateLimit.RequestLimit)
	assert.Equal(t, 30, middleware.ExpensiveRateLimit.RequestLimit)
	assert.Equal(t, 100, middleware.StandardRateLimit.RequestLimit)
	for _, cfg := range []middleware.RateLimitConfig{
		middleware.UploadRateLimit, middleware.ExpensiveRateLimit, middleware.StandardRateLimit,
	} {
		assert.Equal(t, time.Minute, cfg.WindowLength)
	}
}
