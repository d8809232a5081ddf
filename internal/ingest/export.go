package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

// SummarySheet is the name of the overview sheet in forecast exports.
const SummarySheet = "Ringkasan"

const defaultSheet = "Sheet1"

var recordHeader = []string{
	"Tanggal", "Ammonia", "BOD", "COD", "DO", "Nitrat", "pH", "TDS", "TSS",
	"Indeks Pencemaran", "Kategori",
}

var summaryHeader = []string{
	"Lokasi", "Sumber", "Indeks Min", "Indeks Max", "Indeks Rata-rata",
	"Baik", "Sedang", "Buruk", "Peringatan",
}

// WriteHistoryWorkbook writes one sheet per location using the column layout
// ParseWorkbook reads.
func WriteHistoryWorkbook(w io.Writer, series waterquality.HistoricalSeries) error {
	locations := series.Locations()
	if len(locations) == 0 {
		return ErrNoValidData
	}

	f := excelize.NewFile()
	defer f.Close()

	names := newSheetNamer()
	for i, location := range locations {
		sheet := names.name(location)
		if err := addSheet(f, sheet, i == 0); err != nil {
			return err
		}
		if err := writeRecords(f, sheet, series[location], false); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteForecastWorkbook writes a summary sheet followed by one sheet per
// forecast location. Forecast sheets carry an extra Confidence column.
func WriteForecastWorkbook(w io.Writer, results []*waterquality.ForecastResult) error {
	if len(results) == 0 {
		return ErrNoValidData
	}

	sorted := make([]*waterquality.ForecastResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Location < sorted[j].Location })

	f := excelize.NewFile()
	defer f.Close()

	names := newSheetNamer()
	names.reserve(SummarySheet)
	if err := addSheet(f, SummarySheet, true); err != nil {
		return err
	}
	if err := writeRow(f, SummarySheet, 1, toRow(summaryHeader)); err != nil {
		return err
	}
	if err := boldHeader(f, SummarySheet, len(summaryHeader)); err != nil {
		return err
	}

	for i, res := range sorted {
		records := []waterquality.PollutionRecord(res.Series)
		idx := waterquality.IndexStatistics(records)
		dist := waterquality.CategoryDistribution(records)

		row := []any{
			res.Location, string(res.Source), idx.Min, idx.Max, round2(idx.Avg),
			dist[waterquality.CategoryBaik], dist[waterquality.CategorySedang], dist[waterquality.CategoryBuruk],
			len(res.Warnings),
		}
		if err := writeRow(f, SummarySheet, i+2, row); err != nil {
			return err
		}

		sheet := names.name(res.Location)
		if err := addSheet(f, sheet, false); err != nil {
			return err
		}
		if err := writeRecords(f, sheet, records, true); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// maxSheetName is Excel's sheet name limit in characters.
const maxSheetName = 31

// sheetNamer turns location names into sheet names Excel accepts. Excel
// compares sheet names case-insensitively, so "KLHK11" and "klhk11" get
// "KLHK11" and "klhk11 (2)". The summary column and JSON exports keep the
// original location name.
type sheetNamer struct {
	taken map[string]bool
}

func newSheetNamer() *sheetNamer {
	return &sheetNamer{taken: make(map[string]bool)}
}

func (n *sheetNamer) reserve(name string) {
	n.taken[strings.ToLower(name)] = true
}

func (n *sheetNamer) name(location string) string {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, location)
	base = strings.Trim(strings.TrimSpace(base), "'")
	if base == "" || strings.EqualFold(base, "History") {
		base = "Lokasi"
	}

	candidate := truncateRunes(base, maxSheetName)
	for i := 2; n.taken[strings.ToLower(candidate)]; i++ {
		suffix := " (" + strconv.Itoa(i) + ")"
		candidate = truncateRunes(base, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}
	n.reserve(candidate)
	return candidate
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func addSheet(f *excelize.File, name string, first bool) error {
	if first {
		if err := f.SetSheetName(defaultSheet, name); err != nil {
			return fmt.Errorf("rename sheet %q: %w", name, err)
		}
		return nil
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	return nil
}

func writeRecords(f *excelize.File, sheet string, records []waterquality.PollutionRecord, withConfidence bool) error {
	header := recordHeader
	if withConfidence {
		header = append(append([]string{}, recordHeader...), "Confidence")
	}
	if err := writeRow(f, sheet, 1, toRow(header)); err != nil {
		return err
	}
	if err := boldHeader(f, sheet, len(header)); err != nil {
		return err
	}

	for i, r := range records {
		row := make([]any, 0, len(header))
		row = append(row, r.Date.String())
		for _, p := range waterquality.AllParameters {
			row = append(row, r.Get(p))
		}
		row = append(row, r.IndeksPencemaran, string(r.Kategori))
		if withConfidence {
			if r.Confidence != nil {
				row = append(row, round2(*r.Confidence))
			} else {
				row = append(row, nil)
			}
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func boldHeader(f *excelize.File, sheet string, width int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(width, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 14)
}

func toRow(values []string) []any {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
