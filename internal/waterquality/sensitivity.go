package waterquality

import (
	"fmt"

	"github.com/sajari/regression"
)

// SensitivityReport is a multivariate linear fit of the pollution index on all
// eight parameters of the reference dataset.
type SensitivityReport struct {
	Intercept    float64               `json:"intercept"`
	Coefficients map[Parameter]float64 `json:"coefficients"`
	RSquared     float64               `json:"rSquared"`
	Samples      int                   `json:"samples"`
}

// Sensitivity regresses Indeks_Pencemaran on the parameters of every sample.
// Absent parameter values enter the fit as 0.
func Sensitivity(samples []ReferenceSample) (*SensitivityReport, error) {
	if len(samples) <= len(AllParameters) {
		return nil, fmt.Errorf("%w: need more than %d, have %d",
			ErrInsufficientSamples, len(AllParameters), len(samples))
	}

	var r regression.Regression
	r.SetObserved("Indeks_Pencemaran")
	for i, p := range AllParameters {
		r.SetVar(i, string(p))
	}

	for _, s := range samples {
		features := make([]float64, len(AllParameters))
		for i, p := range AllParameters {
			v, _ := s.Value(p)
			features[i] = v
		}
		r.Train(regression.DataPoint(s.IndeksPencemaran, features))
	}

	if err := r.Run(); err != nil {
		return nil, fmt.Errorf("fit sensitivity regression: %w", err)
	}

	coeffs := r.GetCoeffs()
	report := &SensitivityReport{
		Coefficients: make(map[Parameter]float64, len(AllParameters)),
		RSquared:     r.R2,
		Samples:      len(samples),
	}
	if len(coeffs) > 0 {
		report.Intercept = coeffs[0]
	}
	for i, p := range AllParameters {
		if i+1 < len(coeffs) {
			report.Coefficients[p] = coeffs[i+1]
		}
	}

	return report, nil
}
