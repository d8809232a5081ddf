package handler

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/models"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/response"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/history"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/ingest"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

// Upload limits.
const (
	// MaxUploadBytes caps the size of an uploaded workbook.
	MaxUploadBytes = 10 << 20

	uploadField = "file"
)

// ContentTypeXLSX is the media type of exported workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// snapshotDateLayout is the date format of the {date} path segment.
const snapshotDateLayout = "01-02-2006"

// HistoryHandler handles import, export and snapshot endpoints.
type HistoryHandler struct {
	history *history.Service
	logger  zerolog.Logger
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyService *history.Service, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: historyService,
		logger:  logger,
	}
}

// ImportHistory handles POST /v1/history:import - multipart workbook upload.
func (h *HistoryHandler) ImportHistory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		response.BadRequest(w, r, "expected a multipart form with an xlsx file", []models.FieldError{{
			Field:   uploadField,
			Message: "upload must be multipart/form-data and at most 10 MiB",
			Code:    "INVALID_UPLOAD",
		}})
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		response.BadRequest(w, r, "missing workbook", []models.FieldError{{
			Field:   uploadField,
			Message: "file is required",
			Code:    "REQUIRED",
		}})
		return
	}
	defer file.Close()

	logger := h.logger.With().
		Str("operator", GetOperator(r.Context())).
		Str("filename", header.Filename).
		Logger()

	wb, err := ingest.ParseWorkbook(file, ingest.ParseOptions{Logger: logger})
	if err != nil {
		if errors.Is(err, ingest.ErrNoValidData) {
			response.Unprocessable(w, r, err.Error())
			return
		}
		response.BadRequest(w, r, "file is not a readable xlsx workbook", []models.FieldError{{
			Field:   uploadField,
			Message: err.Error(),
			Code:    "INVALID_WORKBOOK",
		}})
		return
	}

	summary, err := h.history.Import(r.Context(), wb.Series)
	if err != nil {
		if errors.Is(err, history.ErrNothingToImport) {
			response.Unprocessable(w, r, err.Error())
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}

	logger.Info().
		Int("records", summary.Records).
		Int("warnings", len(wb.Warnings)).
		Msg("workbook imported")

	response.JSON(w, r, http.StatusOK, models.NewImportResponse(summary, wb))
}

// ExportHistory handles GET /v1/history:export - xlsx of all stored history.
func (h *HistoryHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	series, err := h.history.All(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := ingest.WriteHistoryWorkbook(&buf, series); err != nil {
		if errors.Is(err, ingest.ErrNoValidData) {
			response.NotFound(w, r, "no history stored")
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}

	response.Attachment(w, r, ContentTypeXLSX, "toba-history.xlsx", buf.Bytes())
}

// GetSnapshot handles GET /v1/snapshots/{date} - every location on one day.
func (h *HistoryHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")
	t, err := time.Parse(snapshotDateLayout, strings.TrimSpace(raw))
	if err != nil {
		response.BadRequest(w, r, "invalid date", []models.FieldError{{
			Field:   "date",
			Message: "date must be MM-DD-YYYY",
			Code:    "INVALID_FORMAT",
		}})
		return
	}

	report, err := h.history.Snapshot(r.Context(), waterquality.NewDate(t.Year(), t.Month(), t.Day()))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, report)
}
