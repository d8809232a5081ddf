package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/middleware"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/auth"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "toba-water-monitor",
		Audience:   "toba-api",
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_MissingAuthorizationHeader(t *testing.T) {
	handler := middleware.Auth(newTestJWTService())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/history:import", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `Bearer realm="toba-api"`, rec.Header().Get("WWW-Authenticate"))
	assert.Contains(t, rec.Body.String(), "missing authorization header")
}

func TestAuth_InvalidAuthorizationFormat(t *testing.T) {
	handler := middleware.Auth(newTestJWTService())(okHandler())

	tests := []struct {
		name   string
		header string
		detail string
	}{
		{"no scheme", "token123", "invalid authorization header format"},
		{"basic auth", "Basic b3BzOnNlY3JldA==", "invalid authorization header format"},
		{"garbage token", "bearer token123", "invalid access token"},
		{"empty bearer", "Bearer ", "missing bearer token"},
		{"just bearer", "Bearer", "invalid authorization header format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/history:import", http.NoBody)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.detail)
		})
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	handler := middleware.Auth(newTestJWTService())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/history:import", http.NoBody)
	req.Header.Set("Authorization", "Bearer invalid.jwt.token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid access token")
}

func TestAuth_ValidToken(t *testing.T) {
	jwtService := newTestJWTService()
	token, _, err := jwtService.IssueOperatorToken("ops@balai-wilayah", time.Hour)
	require.NoError(t, err)

	var captured string
	handler := middleware.Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = middleware.GetOperator(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/history:import", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops@balai-wilayah", captured)
}

func TestAuth_CaseInsensitiveBearer(t *testing.T) {
	jwtService := newTestJWTService()
	token, _, err := jwtService.IssueOperatorToken("ops", time.Hour)
	require.NoError(t, err)

	handler := middleware.Auth(jwtService)(okHandler())

	for _, prefix := range []string{"Bearer ", "bearer ", "BEARER "} {
		t.Run(prefix, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/history:import", http.NoBody)
			req.Header.Set("Authorization", prefix+token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestAuth_TokenFromOtherAudience(t *testing.T) {
	other := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "toba-water-monitor",
		Audience:   "someone-else",
	})
	token, _, err := other.IssueOperatorToken("ops", time.Hour)
	require.NoError(t, err)

	handler := middleware.Auth(newTestJWTService())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/history:import", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetOperator_NoAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/history:import", http.NoBody)
	assert.Empty(t, middleware.GetOperator(req.Context()))
}
