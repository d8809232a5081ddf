package waterquality

import "fmt"

// softLimit flags a parameter that is implausible for a category.
type softLimit struct {
	param Parameter
	above bool
	limit float64
}

var softLimits = map[Category][]softLimit{
	CategoryBaik: {
		{param: ParamAmmonia, above: true, limit: 0.5},
		{param: ParamBOD, above: true, limit: 2.0},
		{param: ParamDO, above: false, limit: 6.0},
	},
	CategorySedang: {
		{param: ParamAmmonia, above: true, limit: 1.5},
		{param: ParamBOD, above: true, limit: 6.0},
	},
}

// Validate checks a record's parameters against the soft limits of the
// category its index implies. It never modifies the record.
func Validate(r PollutionRecord) []string {
	expected := Classify(r.IndeksPencemaran)

	var warnings []string
	for _, l := range softLimits[expected] {
		v := r.Get(l.param)
		switch {
		case l.above && v > l.limit:
			warnings = append(warnings, fmt.Sprintf("%s too high for %s", l.param, expected))
		case !l.above && v < l.limit:
			warnings = append(warnings, fmt.Sprintf("%s too low for %s", l.param, expected))
		}
	}
	return warnings
}
