// Package ingest reads monitoring workbooks into historical series and writes
// history and forecast exports.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

// ErrNoValidData is returned when no sheet of a workbook yields a record.
var ErrNoValidData = errors.New("no valid data found in workbook")

// ParseOptions configures ParseWorkbook.
type ParseOptions struct {
	// Logger for per-sheet diagnostics.
	Logger zerolog.Logger
}

// SheetSummary describes how one sheet was read.
type SheetSummary struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
	Skipped int    `json:"skipped"`
}

// Workbook is the result of parsing a monitoring workbook.
type Workbook struct {
	Series   waterquality.HistoricalSeries `json:"series"`
	Warnings []string                      `json:"warnings,omitempty"`
	Sheets   []SheetSummary                `json:"sheets"`
}

// columns holds the index of each recognized column, -1 when absent.
type columns struct {
	date   int
	index  int
	params map[waterquality.Parameter]int
}

type headerMatcher func(h string) bool

func contains(sub string) headerMatcher {
	return func(h string) bool { return strings.Contains(h, sub) }
}

var parameterMatchers = []struct {
	param waterquality.Parameter
	match headerMatcher
}{
	{waterquality.ParamAmmonia, contains("ammonia")},
	{waterquality.ParamBOD, func(h string) bool { return strings.Contains(h, "bod") && !strings.Contains(h, "cod") }},
	{waterquality.ParamCOD, contains("cod")},
	{waterquality.ParamDO, func(h string) bool { return h == "do" || strings.Contains(h, "dissolved") }},
	{waterquality.ParamNitrat, contains("nitrat")},
	{waterquality.ParamPH, contains("ph")},
	{waterquality.ParamTDS, contains("tds")},
	{waterquality.ParamTSS, contains("tss")},
}

func matchIndex(headers []string, m headerMatcher) int {
	for i, h := range headers {
		if h != "" && m(h) {
			return i
		}
	}
	return -1
}

func detectColumns(header []string) columns {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	cols := columns{
		date: matchIndex(normalized, contains("tanggal")),
		index: matchIndex(normalized, func(h string) bool {
			return strings.Contains(h, "indeks") || strings.Contains(h, "pencemar")
		}),
		params: make(map[waterquality.Parameter]int, len(parameterMatchers)),
	}
	for _, pm := range parameterMatchers {
		cols.params[pm.param] = matchIndex(normalized, pm.match)
	}
	return cols
}

// ParseWorkbook reads an .xlsx workbook with one sheet per location. Sheets
// whose name is empty or starts with "_" are ignored.
func ParseWorkbook(r io.Reader, opts ParseOptions) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	wb := &Workbook{Series: make(waterquality.HistoricalSeries)}

	for _, name := range f.GetSheetList() {
		if strings.TrimSpace(name) == "" || strings.HasPrefix(name, "_") {
			continue
		}

		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}

		records, summary, warnings := parseSheet(name, rows, date1904)
		wb.Warnings = append(wb.Warnings, warnings...)
		for _, w := range warnings {
			opts.Logger.Warn().Str("sheet", name).Msg(w)
		}

		if len(records) == 0 {
			continue
		}

		wb.Series[name] = records
		wb.Sheets = append(wb.Sheets, summary)

		opts.Logger.Debug().
			Str("sheet", name).
			Int("records", summary.Records).
			Int("skipped", summary.Skipped).
			Msg("sheet parsed")
	}

	if len(wb.Series) == 0 {
		return nil, ErrNoValidData
	}

	return wb, nil
}

func parseSheet(name string, rows [][]string, date1904 bool) ([]waterquality.PollutionRecord, SheetSummary, []string) {
	summary := SheetSummary{Name: name}

	if len(rows) < 2 {
		return nil, summary, []string{fmt.Sprintf("sheet %s has no data rows", name)}
	}

	cols := detectColumns(rows[0])
	if cols.date < 0 {
		return nil, summary, []string{fmt.Sprintf("sheet %s has no Tanggal column", name)}
	}

	var warnings []string
	records := make([]waterquality.PollutionRecord, 0, len(rows)-1)

	for i, row := range rows[1:] {
		raw := strings.TrimSpace(cell(row, cols.date))
		if raw == "" {
			continue
		}

		t, err := parseDate(raw, date1904)
		if err != nil {
			summary.Skipped++
			// Header is row 1.
			warnings = append(warnings, fmt.Sprintf("sheet %s, row %d: invalid date %q", name, i+2, raw))
			continue
		}

		var rec waterquality.PollutionRecord
		rec.Date = waterquality.Date(t)
		for _, p := range waterquality.AllParameters {
			rec.Set(p, parseValue(cell(row, cols.params[p])))
		}
		rec.IndeksPencemaran = parseValue(cell(row, cols.index))

		records = append(records, rec)
	}

	records = waterquality.PrepareRecords(records)
	summary.Records = len(records)

	return records, summary, warnings
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseValue converts a cell to a number. Empty, "-" and non-numeric cells
// read as 0.
//
// Workbooks from Indonesian locales write the decimal separator as a comma,
// so a lone comma is a decimal point: "1,200" is 1.2, not 1200. When both
// separators appear the last one is the decimal point and the other groups
// thousands ("1.200,5" and "1,200.5" are both 1200.5).
func parseValue(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}

	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

var textDateLayouts = []string{
	waterquality.DateLayout,
	"1/2/2006",
	"2006-01-02",
	"2006-1-2",
}

// parseDate accepts Excel serial numbers and text dates. Slash dates whose
// first part cannot be a month are read as DD/MM/YYYY.
func parseDate(raw string, date1904 bool) (time.Time, error) {
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	if parts := strings.Split(raw, "/"); len(parts) == 3 {
		if first, err := strconv.Atoi(parts[0]); err == nil && first > 12 {
			return time.Parse("2/1/2006", raw)
		}
	}

	for _, layout := range textDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
