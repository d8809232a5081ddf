package waterquality

import (
	"math"
	"sort"
)

// Category thresholds on the pollution index.
const (
	BaikUpperBound   = 1.0
	SedangUpperBound = 5.0
)

// PollutionIndex computes the composite pollution index of a parameter vector
// as the average of eight per-parameter scores. Each score lies in [0, 3].
func PollutionIndex(v ParameterVector) float64 {
	score := scoreAmmonia(v.Ammonia) +
		scoreBOD(v.BOD) +
		scoreCOD(v.COD) +
		scoreDO(v.DO) +
		scoreNitrat(v.Nitrat) +
		scorePH(v.PH) +
		scoreTDS(v.TDS) +
		scoreTSS(v.TSS)
	return score / float64(len(AllParameters))
}

// Classify maps a pollution index to its category.
func Classify(index float64) Category {
	switch {
	case index <= BaikUpperBound:
		return CategoryBaik
	case index <= SedangUpperBound:
		return CategorySedang
	default:
		return CategoryBuruk
	}
}

// PrepareRecords returns a copy of records sorted oldest first, with a zero
// index computed from the parameters and every Kategori derived from the
// index. The input slice is left untouched.
func PrepareRecords(records []PollutionRecord) []PollutionRecord {
	out := make([]PollutionRecord, len(records))
	copy(out, records)
	for i := range out {
		if out[i].IndeksPencemaran == 0 {
			out[i].IndeksPencemaran = PollutionIndex(out[i].ParameterVector)
		}
		out[i].Kategori = Classify(out[i].IndeksPencemaran)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func scoreAmmonia(v float64) float64 {
	switch {
	case v > 1.5:
		return 3
	case v > 0.5:
		return 1.5
	}
	return v
}

func scoreBOD(v float64) float64 {
	switch {
	case v > 6:
		return 3
	case v > 2:
		return 1.5
	}
	return v / 2
}

func scoreCOD(v float64) float64 {
	switch {
	case v > 25:
		return 3
	case v > 10:
		return 1.5
	}
	return v / 10
}

// scoreDO is inverted: low dissolved oxygen is the risk.
func scoreDO(v float64) float64 {
	switch {
	case v < 4:
		return 3
	case v < 6:
		return 1.5
	}
	return math.Max(0, (8-v)/2)
}

func scoreNitrat(v float64) float64 {
	switch {
	case v > 20:
		return 3
	case v > 10:
		return 1.5
	}
	return v / 10
}

func scorePH(v float64) float64 {
	switch {
	case v < 6.0 || v > 9.0:
		return 3
	case v < 6.5 || v > 8.5:
		return 1.5
	}
	return math.Abs(7.5-v) / 2
}

func scoreTDS(v float64) float64 {
	switch {
	case v > 1000:
		return 3
	case v > 500:
		return 1.5
	}
	return v / 500
}

func scoreTSS(v float64) float64 {
	switch {
	case v > 50:
		return 3
	case v > 25:
		return 1.5
	}
	return v / 25
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
