package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/models"
)

func TestProblem_Builders(t *testing.T) {
	errs := []models.FieldError{{Field: "history[0].date", Message: "date is required (MM/DD/YYYY)", Code: "REQUIRED"}}

	p := models.NewProblem(models.ProblemTypeValidation, "Validation error", http.StatusBadRequest, "req_1").
		WithDetail("invalid forecast request").
		WithInstance("/v1/forecasts").
		WithErrors(errs)

	assert.Equal(t, models.ProblemTypeValidation, p.Type)
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, "req_1", p.TraceID)
	assert.Equal(t, "invalid forecast request", p.Detail)
	assert.Equal(t, "/v1/forecasts", p.Instance)
	assert.Equal(t, errs, p.Errors)
}

func TestProblem_Write(t *testing.T) {
	rec := httptest.NewRecorder()
	models.NewNotFound("req_2", "no history for location Atlantis").
		WithInstance("/v1/locations/Atlantis/history").
		Write(rec)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req_2", rec.Header().Get("X-Request-Id"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.ProblemTypeNotFound, body["type"])
	assert.Equal(t, float64(http.StatusNotFound), body["status"])
	assert.Equal(t, "req_2", body["traceId"])
	assert.Equal(t, "/v1/locations/Atlantis/history", body["instance"])
	assert.NotContains(t, body, "errors")
}

func TestProblemConstructors(t *testing.T) {
	tests := []struct {
		problem *models.Problem
		typ     string
		status  int
	}{
		{models.NewBadRequest("t", "d", nil), models.ProblemTypeValidation, http.StatusBadRequest},
		{models.NewUnauthorized("t", "d"), models.ProblemTypeUnauthorized, http.StatusUnauthorized},
		{models.NewNotFound("t", "d"), models.ProblemTypeNotFound, http.StatusNotFound},
		{models.NewUnsupportedMediaType("t", "d"), models.ProblemTypeMediaType, http.StatusUnsupportedMediaType},
		{models.NewUnprocessable("t", "d"), models.ProblemTypeUnprocessable, http.StatusUnprocessableEntity},
		{models.NewTooManyRequests("t", "d"), models.ProblemTypeTooManyRequests, http.StatusTooManyRequests},
		{models.NewInternalError("t", "d"), models.ProblemTypeInternal, http.StatusInternalServerError},
		{models.NewServiceUnavailable("t", "d"), models.ProblemTypeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.problem.Type)
			assert.Equal(t, tt.status, tt.problem.Status)
			assert.Equal(t, "t", tt.problem.TraceID)
			assert.Equal(t, "d", tt.problem.Detail)
			assert.NotEmpty(t, tt.problem.Title)
		})
	}
}
