package waterquality_test

import (
	"context"
	"sync/atomic"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

// constRand always draws the same value. 0.5 produces zero noise.
type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

// fakeReference is a ReferenceSource returning fixed samples.
type fakeReference struct {
	samples []waterquality.ReferenceSample
	err     error
	loads   atomic.Int32
}

func (f *fakeReference) LoadSamples(_ context.Context) ([]waterquality.ReferenceSample, error) {
	f.loads.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.samples, nil
}

func ptr(v float64) *float64 { return &v }

// fullSample builds a sample with every parameter set to value.
func fullSample(index, value float64, category waterquality.Category) waterquality.ReferenceSample {
	return waterquality.ReferenceSample{
		Ammonia:          ptr(value),
		BOD:              ptr(value),
		COD:              ptr(value),
		DO:               ptr(value),
		Nitrat:           ptr(value),
		PH:               ptr(value),
		TDS:              ptr(value),
		TSS:              ptr(value),
		IndeksPencemaran: index,
		Kategori:         category,
	}
}

// referenceSamples covers all three categories with a clean linear relation
// value = 2*index + 1.
func referenceSamples() []waterquality.ReferenceSample {
	var samples []waterquality.ReferenceSample
	for _, idx := range []float64{0.2, 0.4, 0.6, 0.8, 1.0} {
		samples = append(samples, fullSample(idx, 2*idx+1, waterquality.CategoryBaik))
	}
	for _, idx := range []float64{1.5, 2.5, 3.5, 4.5} {
		samples = append(samples, fullSample(idx, 2*idx+1, waterquality.CategorySedang))
	}
	for _, idx := range []float64{6, 7, 8} {
		samples = append(samples, fullSample(idx, 2*idx+1, waterquality.CategoryBuruk))
	}
	return samples
}

// historyOf builds a single-location history from index values.
func historyOf(location string, indices ...float64) waterquality.HistoricalSeries {
	start := waterquality.NewDate(2025, 1, 1)
	records := make([]waterquality.PollutionRecord, 0, len(indices))
	for i, idx := range indices {
		records = append(records, waterquality.PollutionRecord{
			Date:             start.AddDays(i),
			IndeksPencemaran: idx,
			Kategori:         waterquality.Classify(idx),
		})
	}
	return waterquality.HistoricalSeries{location: records}
}
