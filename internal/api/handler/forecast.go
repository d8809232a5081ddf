package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/models"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/response"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/history"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/ingest"
)

// Export formats accepted by GET /v1/forecasts:export.
const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// maxForecastBody caps the JSON body of POST /v1/forecasts.
const maxForecastBody = 4 << 20

// ForecastHandler handles forecast endpoints.
type ForecastHandler struct {
	history *history.Service
	logger  zerolog.Logger
}

// NewForecastHandler creates a new ForecastHandler.
func NewForecastHandler(historyService *history.Service, logger zerolog.Logger) *ForecastHandler {
	return &ForecastHandler{
		history: historyService,
		logger:  logger,
	}
}

// CreateForecast handles POST /v1/forecasts.
//
// With a history in the body the forecast is computed ad hoc and returned
// with 200. Otherwise the stored history of the location is used, the run
// is persisted and 201 points at the location's latest forecast.
func (h *ForecastHandler) CreateForecast(w http.ResponseWriter, r *http.Request) {
	var input models.ForecastRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxForecastBody)).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if errs := input.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "request validation failed", errs)
		return
	}

	if len(input.History) > 0 {
		result := h.history.ForecastHistory(r.Context(), input.Location, input.History)
		response.JSON(w, r, http.StatusOK, result)
		return
	}

	result, err := h.history.Forecast(r.Context(), input.Location)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	location := "/v1/locations/" + url.PathEscape(result.Location) + "/forecast"
	response.Created(w, r, location, result)
}

// ExportForecasts handles GET /v1/forecasts:export?format=json|xlsx - the
// latest run of every location.
func (h *ForecastHandler) ExportForecasts(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatXLSX {
		response.BadRequest(w, r, "unsupported export format", []models.FieldError{{
			Field:   "format",
			Message: "format must be json or xlsx",
			Code:    "INVALID_ENUM",
		}})
		return
	}

	results, err := h.history.LatestForecasts(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if len(results) == 0 {
		response.NotFound(w, r, "no forecasts stored")
		return
	}

	var buf bytes.Buffer
	switch format {
	case FormatXLSX:
		err = ingest.WriteForecastWorkbook(&buf, results)
	default:
		err = ingest.WriteJSON(&buf, models.NewListResponse(results))
	}
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if format == FormatXLSX {
		response.Attachment(w, r, ContentTypeXLSX, "toba-forecast.xlsx", buf.Bytes())
		return
	}
	response.Attachment(w, r, "application/json", "toba-forecast.json", buf.Bytes())
}
