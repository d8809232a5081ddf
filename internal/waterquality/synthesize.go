package waterquality

import "math"

const (
	// weakFitRSquared is the R² below which a model's line is blended toward
	// the category median.
	weakFitRSquared = 0.5

	synthesisNoiseScale = 0.15
	lowerBoundFactor    = 0.9
	upperBoundFactor    = 1.1
)

// SynthesizeParameter derives a parameter value from a forecast index using the
// model of the index's category. It returns false when no model exists for
// that parameter and category, in which case the value is 0.
func SynthesizeParameter(index float64, p Parameter, models ReferenceModels, rng RandSource) (float64, bool) {
	model, ok := models.Lookup(p, Classify(index))
	if !ok {
		return 0, false
	}
	return model.Predict(index, rng), true
}

// Predict evaluates the model at index with noise drawn from rng, bounded to
// the observed range widened by 10% on each side and rounded to 2 decimals.
func (m *CategoryModel) Predict(index float64, rng RandSource) float64 {
	predicted := m.Slope*index + m.Intercept

	if m.RSquared < weakFitRSquared {
		predicted = m.RSquared*predicted + (1-m.RSquared)*m.Median
	}

	predicted += noise(rng, m.StdDev*synthesisNoiseScale)
	predicted = clamp(predicted, m.Min*lowerBoundFactor, m.Max*upperBoundFactor)
	predicted = math.Max(0, predicted)

	return round2(predicted)
}
