package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/response"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality/reference"
)

// maxReferenceBody caps an uploaded reference dataset.
const maxReferenceBody = 16 << 20

// ReferenceHandler handles reference dataset endpoints.
type ReferenceHandler struct {
	reference *reference.Service
	logger    zerolog.Logger
}

// NewReferenceHandler creates a new ReferenceHandler.
func NewReferenceHandler(referenceService *reference.Service, logger zerolog.Logger) *ReferenceHandler {
	return &ReferenceHandler{
		reference: referenceService,
		logger:    logger,
	}
}

// GetModels handles GET /v1/reference/models - fitted per-category models.
func (h *ReferenceHandler) GetModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.reference.Models(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models)
}

// GetSensitivity handles GET /v1/reference/sensitivity.
func (h *ReferenceHandler) GetSensitivity(w http.ResponseWriter, r *http.Request) {
	report, err := h.reference.Sensitivity(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, report)
}

// ReplaceSamples handles PUT /v1/reference/samples - installs an uploaded
// dataset until the cache is invalidated.
func (h *ReferenceHandler) ReplaceSamples(w http.ResponseWriter, r *http.Request) {
	var samples []waterquality.ReferenceSample
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReferenceBody)).Decode(&samples); err != nil {
		response.BadRequest(w, r, "body must be a JSON array of reference samples", nil)
		return
	}

	if err := h.reference.Replace(samples); err != nil {
		if errors.Is(err, waterquality.ErrEmptyDataset) {
			response.BadRequest(w, r, "reference dataset must not be empty", nil)
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info().
		Str("operator", GetOperator(r.Context())).
		Int("samples", len(samples)).
		Msg("reference dataset replaced")

	response.JSON(w, r, http.StatusOK, h.reference.CacheStatus())
}

// InvalidateCache handles POST /v1/reference/invalidate - drops cached and
// uploaded samples so the next request reloads from the source.
func (h *ReferenceHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.reference.Invalidate()
	response.NoContent(w, r)
}
