// Package waterquality implements the water-quality forecasting engine: the
// pollution index, category classification, reference models and the 31-day
// forecast built on top of them.
package waterquality

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Reference errors.
var (
	ErrEmptyDataset         = errors.New("reference dataset is empty")
	ErrReferenceUnavailable = errors.New("reference dataset unavailable")
	ErrInsufficientSamples  = errors.New("not enough reference samples")
)

// Parameter names a measured water-quality parameter.
type Parameter string

const (
	ParamAmmonia Parameter = "Ammonia"
	ParamBOD     Parameter = "BOD"
	ParamCOD     Parameter = "COD"
	ParamDO      Parameter = "DO"
	ParamNitrat  Parameter = "Nitrat"
	ParamPH      Parameter = "pH"
	ParamTDS     Parameter = "TDS"
	ParamTSS     Parameter = "TSS"
)

// AllParameters lists every parameter in canonical column order.
var AllParameters = []Parameter{
	ParamAmmonia, ParamBOD, ParamCOD, ParamDO,
	ParamNitrat, ParamPH, ParamTDS, ParamTSS,
}

// Category is the ordinal water-quality class derived from the pollution index.
type Category string

const (
	CategoryBaik   Category = "Baik"
	CategorySedang Category = "Sedang"
	CategoryBuruk  Category = "Buruk"
)

// AllCategories lists categories from best to worst.
var AllCategories = []Category{CategoryBaik, CategorySedang, CategoryBuruk}

// ParameterVector holds one reading of all eight parameters.
// Missing readings are stored as 0.
type ParameterVector struct {
	Ammonia float64 `json:"Ammonia"`
	BOD     float64 `json:"BOD"`
	COD     float64 `json:"COD"`
	DO      float64 `json:"DO"`
	Nitrat  float64 `json:"Nitrat"`
	PH      float64 `json:"pH"`
	TDS     float64 `json:"TDS"`
	TSS     float64 `json:"TSS"`
}

// Get returns the value of a parameter. Unknown parameters read as 0.
func (v ParameterVector) Get(p Parameter) float64 {
	switch p {
	case ParamAmmonia:
		return v.Ammonia
	case ParamBOD:
		return v.BOD
	case ParamCOD:
		return v.COD
	case ParamDO:
		return v.DO
	case ParamNitrat:
		return v.Nitrat
	case ParamPH:
		return v.PH
	case ParamTDS:
		return v.TDS
	case ParamTSS:
		return v.TSS
	}
	return 0
}

// Set assigns the value of a parameter. Unknown parameters are ignored.
func (v *ParameterVector) Set(p Parameter, value float64) {
	switch p {
	case ParamAmmonia:
		v.Ammonia = value
	case ParamBOD:
		v.BOD = value
	case ParamCOD:
		v.COD = value
	case ParamDO:
		v.DO = value
	case ParamNitrat:
		v.Nitrat = value
	case ParamPH:
		v.PH = value
	case ParamTDS:
		v.TDS = value
	case ParamTSS:
		v.TSS = value
	}
}

// DateLayout is the textual calendar-day format used on the wire and in sheets.
const DateLayout = "01/02/2006"

// Date is a calendar day serialized as MM/DD/YYYY.
type Date time.Time

// NewDate truncates t to its calendar day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses a MM/DD/YYYY string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date(t), nil
}

// Time returns the underlying time.Time.
func (d Date) Time() time.Time {
	return time.Time(d)
}

// String formats the date as MM/DD/YYYY.
func (d Date) String() string {
	return time.Time(d).Format(DateLayout)
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date(time.Time(d).AddDate(0, 0, n))
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return time.Time(d).Before(time.Time(other))
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	parsed, err := ParseDate(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PollutionRecord is one day of readings for one location.
// Confidence is only set on forecast records.
type PollutionRecord struct {
	Date Date `json:"date"`
	ParameterVector
	IndeksPencemaran float64  `json:"IndeksPencemaran"`
	Kategori         Category `json:"Kategori"`
	Confidence       *float64 `json:"confidence,omitempty"`
}

// HistoricalSeries maps a location name to its records in ascending date order.
type HistoricalSeries map[string][]PollutionRecord

// Locations returns the location names in the series, sorted.
func (h HistoricalSeries) Locations() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Indices returns the raw pollution index values recorded for a location.
func (h HistoricalSeries) Indices(location string) []float64 {
	records := h[location]
	out := make([]float64, 0, len(records))
	for _, r := range records {
		out = append(out, r.IndeksPencemaran)
	}
	return out
}

// ReferenceSample is a labeled row of the reference dataset.
// Nil parameter values are absent, not zero.
type ReferenceSample struct {
	Ammonia          *float64 `json:"Ammonia,omitempty"`
	BOD              *float64 `json:"BOD,omitempty"`
	COD              *float64 `json:"COD,omitempty"`
	DO               *float64 `json:"DO,omitempty"`
	Nitrat           *float64 `json:"Nitrat,omitempty"`
	PH               *float64 `json:"pH,omitempty"`
	TDS              *float64 `json:"TDS,omitempty"`
	TSS              *float64 `json:"TSS,omitempty"`
	IndeksPencemaran float64  `json:"Indeks_Pencemaran"`
	Kategori         Category `json:"Kategori"`
}

func (s *ReferenceSample) field(p Parameter) **float64 {
	switch p {
	case ParamAmmonia:
		return &s.Ammonia
	case ParamBOD:
		return &s.BOD
	case ParamCOD:
		return &s.COD
	case ParamDO:
		return &s.DO
	case ParamNitrat:
		return &s.Nitrat
	case ParamPH:
		return &s.PH
	case ParamTDS:
		return &s.TDS
	case ParamTSS:
		return &s.TSS
	}
	return nil
}

// Value returns the sample's value for a parameter and whether it is present.
func (s ReferenceSample) Value(p Parameter) (float64, bool) {
	f := s.field(p)
	if f == nil || *f == nil {
		return 0, false
	}
	return **f, true
}

// Set records a value for a parameter. Unknown parameters are ignored.
func (s *ReferenceSample) Set(p Parameter, value float64) {
	if f := s.field(p); f != nil {
		*f = &value
	}
}

// Label returns the sample's category, treating an empty label as Baik.
func (s ReferenceSample) Label() Category {
	if s.Kategori == "" {
		return CategoryBaik
	}
	return s.Kategori
}

// CategoryModel is the fitted value-on-index relationship for one parameter
// within one category of the reference dataset.
type CategoryModel struct {
	Mean        float64 `json:"mean"`
	Median      float64 `json:"median"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	StdDev      float64 `json:"stdDev"`
	Slope       float64 `json:"slope"`
	Intercept   float64 `json:"intercept"`
	RSquared    float64 `json:"rSquared"`
	SampleCount int     `json:"sampleCount"`
}

// ReferenceModels holds CategoryModels keyed by parameter then category.
// A missing entry means the partition had no samples.
type ReferenceModels map[Parameter]map[Category]*CategoryModel

// Lookup returns the model for a parameter and category.
func (m ReferenceModels) Lookup(p Parameter, c Category) (*CategoryModel, bool) {
	byCategory, ok := m[p]
	if !ok {
		return nil, false
	}
	model, ok := byCategory[c]
	return model, ok
}

// ForecastSeries is the 31-day forecast for one location.
type ForecastSeries []PollutionRecord

// ForecastSource identifies how a forecast was produced.
type ForecastSource string

const (
	SourceModel   ForecastSource = "model"
	SourceDefault ForecastSource = "default"
)

// ForecastResult wraps a forecast series with the diagnostics of the run.
type ForecastResult struct {
	RunID          string         `json:"runId"`
	Location       string         `json:"location"`
	Source         ForecastSource `json:"source"`
	FallbackReason string         `json:"fallbackReason,omitempty"`
	Series         ForecastSeries `json:"series"`
	Warnings       []string       `json:"warnings,omitempty"`
	Window         *WindowStats   `json:"window,omitempty"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}
