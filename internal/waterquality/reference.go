package waterquality

import (
	"context"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ReferenceSource loads the labeled reference dataset. Implementations are
// called once per forecast and may return a shared read-only slice.
type ReferenceSource interface {
	LoadSamples(ctx context.Context) ([]ReferenceSample, error)
}

// BuildModels fits a CategoryModel for every parameter and category that has
// at least one sample with a value for that parameter.
func BuildModels(samples []ReferenceSample) ReferenceModels {
	models := make(ReferenceModels, len(AllParameters))

	for _, p := range AllParameters {
		indices := make(map[Category][]float64, len(AllCategories))
		values := make(map[Category][]float64, len(AllCategories))

		for _, s := range samples {
			v, ok := s.Value(p)
			if !ok {
				continue
			}
			c := s.Label()
			indices[c] = append(indices[c], s.IndeksPencemaran)
			values[c] = append(values[c], v)
		}

		byCategory := make(map[Category]*CategoryModel, len(values))
		for c, ys := range values {
			if len(ys) == 0 {
				continue
			}
			byCategory[c] = fitCategoryModel(indices[c], ys)
		}
		models[p] = byCategory
	}

	return models
}

func fitCategoryModel(indices, values []float64) *CategoryModel {
	mean, std := stat.PopMeanStdDev(values, nil)
	fit := fitLine(indices, values)

	return &CategoryModel{
		Mean:        mean,
		Median:      median(values),
		Min:         floats.Min(values),
		Max:         floats.Max(values),
		StdDev:      std,
		Slope:       fit.Slope,
		Intercept:   fit.Intercept,
		RSquared:    fit.RSquared,
		SampleCount: len(values),
	}
}
