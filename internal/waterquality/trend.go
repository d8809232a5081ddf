package waterquality

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// NeutralIndex is returned when a location has no positive index readings.
	NeutralIndex = 0.5

	// TrendWindow is the number of most recent readings the trend is fitted on.
	TrendWindow = 60

	// RecentWindow is the number of readings averaged as the forecast anchor.
	RecentWindow = 7

	// MaxForecastIndex bounds the forecast index from above.
	MaxForecastIndex = 10.0

	trendDampingDays = 30.0
	trendNoiseScale  = 0.08
)

// WindowStats describes the history window a trend forecast is anchored on.
type WindowStats struct {
	Count       int     `json:"count"`
	UniqueCount int     `json:"uniqueCount"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Mean        float64 `json:"mean"`
	Median      float64 `json:"median"`
	Slope       float64 `json:"slope"`
	StdDev      float64 `json:"stdDev"`
	RecentMean  float64 `json:"recentMean"`
}

// Degenerate reports whether the window carries no usable variation.
func (w WindowStats) Degenerate() bool {
	return w.Count == 0 || w.UniqueCount == 1
}

// PositiveIndices drops zero and negative readings, which mean "not measured".
func PositiveIndices(history []float64) []float64 {
	valid := make([]float64, 0, len(history))
	for _, v := range history {
		if v > 0 {
			valid = append(valid, v)
		}
	}
	return valid
}

// AnalyzeWindow computes the statistics of the most recent TrendWindow positive
// readings. An empty or all-zero history yields a zero WindowStats.
func AnalyzeWindow(history []float64) WindowStats {
	valid := PositiveIndices(history)
	if len(valid) == 0 {
		return WindowStats{}
	}
	if len(valid) > TrendWindow {
		valid = valid[len(valid)-TrendWindow:]
	}

	mean, std := stat.PopMeanStdDev(valid, nil)
	fit := fitLine(positions(len(valid)), valid)

	recent := valid
	if len(recent) > RecentWindow {
		recent = recent[len(recent)-RecentWindow:]
	}

	unique := make(map[float64]struct{}, len(valid))
	for _, v := range valid {
		unique[v] = struct{}{}
	}

	return WindowStats{
		Count:       len(valid),
		UniqueCount: len(unique),
		Min:         floats.Min(valid),
		Max:         floats.Max(valid),
		Mean:        mean,
		Median:      median(valid),
		Slope:       fit.Slope,
		StdDev:      std,
		RecentMean:  stat.Mean(recent, nil),
	}
}

// ForecastIndex projects the pollution index daysAhead days past the end of
// history.
//
// The projection is anchored on the mean of the last RecentWindow readings and
// adds the window's linear trend damped by e^(-daysAhead/30) plus a noise term
// of (U-0.5)*stdDev*0.08. The result is clamped to [0, MaxForecastIndex].
// Each call is independent: forecasts are never fed back into history.
func ForecastIndex(history []float64, daysAhead int, rng RandSource) float64 {
	w := AnalyzeWindow(history)
	if w.Count == 0 {
		return NeutralIndex
	}
	return projectIndex(w, daysAhead, rng)
}

func projectIndex(w WindowStats, daysAhead int, rng RandSource) float64 {
	days := float64(daysAhead)
	trend := w.Slope * days
	damping := math.Exp(-days / trendDampingDays)

	forecast := w.RecentMean + trend*damping + noise(rng, w.StdDev*trendNoiseScale)
	return clamp(forecast, 0, MaxForecastIndex)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
