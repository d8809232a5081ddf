package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/models"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/response"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/history"
)

// LocationHandler handles per-location read endpoints.
type LocationHandler struct {
	history *history.Service
	logger  zerolog.Logger
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(historyService *history.Service, logger zerolog.Logger) *LocationHandler {
	return &LocationHandler{
		history: historyService,
		logger:  logger,
	}
}

// ListLocations handles GET /v1/locations - catalog plus stored locations.
func (h *LocationHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.history.Locations(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewListResponse(locations))
}

// GetHistory handles GET /v1/locations/{location}/history.
func (h *LocationHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	location := locationParam(r)

	records, err := h.history.History(r.Context(), location)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.HistoryResponse{
		Location: location,
		Records:  records,
		Count:    len(records),
	})
}

// GetStatistics handles GET /v1/locations/{location}/statistics.
func (h *LocationHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.history.Statistics(r.Context(), locationParam(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, stats)
}

// GetLatestForecast handles GET /v1/locations/{location}/forecast.
func (h *LocationHandler) GetLatestForecast(w http.ResponseWriter, r *http.Request) {
	result, err := h.history.LatestForecast(r.Context(), locationParam(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}
