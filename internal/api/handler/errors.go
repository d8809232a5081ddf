package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/response"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/history"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

// writeServiceError maps service errors to problem responses. Unexpected
// errors are logged and reported as 500 without their message.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, history.ErrLocationNotFound):
		response.NotFound(w, r, "location not found")
	case errors.Is(err, history.ErrForecastNotFound):
		response.NotFound(w, r, "no forecast stored for this location")
	case errors.Is(err, history.ErrDateNotFound):
		response.NotFound(w, r, "no records on this date")
	case errors.Is(err, waterquality.ErrReferenceUnavailable):
		response.ServiceUnavailable(w, r, "reference dataset unavailable")
	case errors.Is(err, waterquality.ErrEmptyDataset):
		response.ServiceUnavailable(w, r, "reference dataset is empty")
	case errors.Is(err, waterquality.ErrInsufficientSamples):
		response.ServiceUnavailable(w, r, "reference dataset too small for a sensitivity fit")
	default:
		logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
