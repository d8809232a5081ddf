package models

import (
	"fmt"
	"strings"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/history"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/ingest"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

// MaxHistoryRecords caps the ad hoc history accepted by POST /v1/forecasts.
const MaxHistoryRecords = 3660

// ForecastRequest is the body of POST /v1/forecasts. Without History the
// stored series of Location is used and the run is persisted.
type ForecastRequest struct {
	Location string                         `json:"location"`
	History  []waterquality.PollutionRecord `json:"history,omitempty"`
}

// Validate validates the forecast request.
func (r *ForecastRequest) Validate() []FieldError {
	var errs []FieldError

	if strings.TrimSpace(r.Location) == "" {
		errs = append(errs, FieldError{
			Field:   "location",
			Message: "location is required",
			Code:    "REQUIRED",
		})
	}

	if len(r.History) > MaxHistoryRecords {
		errs = append(errs, FieldError{
			Field:   "history",
			Message: fmt.Sprintf("at most %d records are accepted", MaxHistoryRecords),
			Code:    "TOO_LONG",
		})
		return errs
	}

	for i, rec := range r.History {
		if rec.Date.Time().IsZero() {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("history[%d].date", i),
				Message: "date is required (MM/DD/YYYY)",
				Code:    "REQUIRED",
			})
		}
		if rec.IndeksPencemaran < 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("history[%d].IndeksPencemaran", i),
				Message: "pollution index must not be negative",
				Code:    "OUT_OF_RANGE",
			})
		}
	}

	return errs
}

// ImportResponse is returned by POST /v1/history:import.
type ImportResponse struct {
	history.ImportSummary
	Sheets   []ingest.SheetSummary `json:"sheets"`
	Warnings []string              `json:"warnings"`
}

// NewImportResponse combines the stored summary with the parse report.
func NewImportResponse(summary *history.ImportSummary, wb *ingest.Workbook) ImportResponse {
	warnings := wb.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return ImportResponse{
		ImportSummary: *summary,
		Sheets:        wb.Sheets,
		Warnings:      warnings,
	}
}

// HistoryResponse is a location's stored series.
type HistoryResponse struct {
	Location string                         `json:"location"`
	Records  []waterquality.PollutionRecord `json:"records"`
	Count    int                            `json:"count"`
}
