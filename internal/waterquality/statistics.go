package waterquality

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary is a descriptive summary of one parameter.
type Summary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	Count  int     `json:"count"`
}

// TrendDirection describes how a series moved between its halves.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// trendThreshold is the relative change between half averages that counts as
// a trend.
const trendThreshold = 0.1

// CompletenessReport lists which parameters a record actually measured.
type CompletenessReport struct {
	Percentage    float64     `json:"percentage"`
	MissingParams []Parameter `json:"missingParams"`
}

// Snapshot returns each location's record on date. Locations without a
// record that day get a zero record classified Baik.
func Snapshot(series HistoricalSeries, date Date) map[string]PollutionRecord {
	out := make(map[string]PollutionRecord, len(series))
	for location, records := range series {
		rec := PollutionRecord{Date: date, Kategori: CategoryBaik}
		for _, r := range records {
			if r.Date.String() == date.String() {
				rec = r
				break
			}
		}
		out[location] = rec
	}
	return out
}

// Dates returns every distinct date in the series in ascending order.
func Dates(series HistoricalSeries) []Date {
	seen := make(map[string]Date)
	for _, records := range series {
		for _, r := range records {
			seen[r.Date.String()] = r.Date
		}
	}

	dates := make([]Date, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// ParameterStatistics summarizes a parameter across records, ignoring zero
// readings. With no non-zero readings every field is 0.
func ParameterStatistics(records []PollutionRecord, p Parameter) Summary {
	values := make([]float64, 0, len(records))
	for _, r := range records {
		if v := r.Get(p); v != 0 {
			values = append(values, v)
		}
	}
	return summarize(values)
}

// IndexStatistics summarizes the pollution index across records, ignoring
// zero readings.
func IndexStatistics(records []PollutionRecord) Summary {
	values := make([]float64, 0, len(records))
	for _, r := range records {
		if r.IndeksPencemaran != 0 {
			values = append(values, r.IndeksPencemaran)
		}
	}
	return summarize(values)
}

func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	return Summary{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Avg:    stat.Mean(values, nil),
		Median: median(values),
		Count:  len(values),
	}
}

// CategoryDistribution counts records per category. Unlabeled records count
// as Baik.
func CategoryDistribution(records []PollutionRecord) map[Category]int {
	dist := map[Category]int{
		CategoryBaik:   0,
		CategorySedang: 0,
		CategoryBuruk:  0,
	}
	for _, r := range records {
		c := r.Kategori
		if c == "" {
			c = CategoryBaik
		}
		if _, ok := dist[c]; ok {
			dist[c]++
		}
	}
	return dist
}

// Trend compares the averages of the first and second halves of values.
// A change beyond 10% of the first-half average is a trend.
func Trend(values []float64) TrendDirection {
	if len(values) < 2 {
		return TrendStable
	}

	mid := len(values) / 2
	first := stat.Mean(values[:mid], nil)
	second := stat.Mean(values[mid:], nil)

	diff := second - first
	threshold := first * trendThreshold

	switch {
	case diff > threshold:
		return TrendIncreasing
	case diff < -threshold:
		return TrendDecreasing
	}
	return TrendStable
}

// Completeness reports, per location, the share of parameters with a non-zero
// reading in the snapshot.
func Completeness(snapshot map[string]PollutionRecord) map[string]CompletenessReport {
	out := make(map[string]CompletenessReport, len(snapshot))
	for location, r := range snapshot {
		missing := make([]Parameter, 0)
		for _, p := range AllParameters {
			if r.Get(p) == 0 {
				missing = append(missing, p)
			}
		}
		present := len(AllParameters) - len(missing)
		out[location] = CompletenessReport{
			Percentage:    float64(present) / float64(len(AllParameters)) * 100,
			MissingParams: missing,
		}
	}
	return out
}

// LocationStatistics is the statistical profile of one location's history.
type LocationStatistics struct {
	Location     string                `json:"location"`
	Records      int                   `json:"records"`
	Index        Summary               `json:"index"`
	IndexTrend   TrendDirection        `json:"indexTrend"`
	Parameters   map[Parameter]Summary `json:"parameters"`
	Distribution map[Category]int      `json:"distribution"`
}

// Describe builds the statistical profile of a location.
func Describe(location string, records []PollutionRecord) LocationStatistics {
	params := make(map[Parameter]Summary, len(AllParameters))
	for _, p := range AllParameters {
		params[p] = ParameterStatistics(records, p)
	}

	indices := make([]float64, 0, len(records))
	for _, r := range records {
		indices = append(indices, r.IndeksPencemaran)
	}

	return LocationStatistics{
		Location:     location,
		Records:      len(records),
		Index:        IndexStatistics(records),
		IndexTrend:   Trend(indices),
		Parameters:   params,
		Distribution: CategoryDistribution(records),
	}
}
