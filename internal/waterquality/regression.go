package waterquality

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// lineFit is an ordinary least squares fit of y on x.
type lineFit struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// fitLine fits y = slope*x + intercept. When every x is identical the slope
// is 0 and the intercept is the mean of y. R² is 0 when y has no spread.
func fitLine(x, y []float64) lineFit {
	if len(x) == 0 || len(x) != len(y) {
		return lineFit{}
	}

	if floats.Max(x) == floats.Min(x) {
		return lineFit{Intercept: stat.Mean(y, nil)}
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	fit := lineFit{Slope: slope, Intercept: intercept}

	if floats.Max(y) != floats.Min(y) {
		fit.RSquared = stat.RSquared(x, y, nil, intercept, slope)
	}
	return fit
}

// median returns the middle value, averaging the two middle values on even
// counts. It does not modify values.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// positions returns 0..n-1 as float64.
func positions(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs
}
