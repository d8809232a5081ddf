package waterquality_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

func TestPollutionIndex(t *testing.T) {
	tests := []struct {
		name   string
		vector waterquality.ParameterVector
		want   float64
	}{
		{
			name:   "all zero readings score DO and pH as worst",
			vector: waterquality.ParameterVector{},
			want:   0.75,
		},
		{
			name:   "default baseline",
			vector: waterquality.DefaultBaseline,
			want:   0.46875,
		},
		{
			name: "every parameter beyond the outer threshold",
			vector: waterquality.ParameterVector{
				Ammonia: 2, BOD: 7, COD: 30, DO: 3, Nitrat: 25, PH: 10, TDS: 2000, TSS: 60,
			},
			want: 3,
		},
		{
			name: "every parameter in the middle band",
			vector: waterquality.ParameterVector{
				Ammonia: 1, BOD: 4, COD: 20, DO: 5, Nitrat: 15, PH: 8.7, TDS: 700, TSS: 30,
			},
			want: 1.5,
		},
		{
			name: "ideal water",
			vector: waterquality.ParameterVector{
				DO: 8, PH: 7.5,
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, waterquality.PollutionIndex(tt.vector), 1e-9)
		})
	}
}

func TestPollutionIndex_Bounded(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		v := waterquality.ParameterVector{
			Ammonia: rng.Float64() * 5,
			BOD:     rng.Float64() * 20,
			COD:     rng.Float64() * 80,
			DO:      rng.Float64() * 14,
			Nitrat:  rng.Float64() * 50,
			PH:      rng.Float64() * 14,
			TDS:     rng.Float64() * 3000,
			TSS:     rng.Float64() * 150,
		}
		idx := waterquality.PollutionIndex(v)
		assert.GreaterOrEqual(t, idx, 0.0)
		assert.LessOrEqual(t, idx, 3.0)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		index float64
		want  waterquality.Category
	}{
		{0, waterquality.CategoryBaik},
		{0.99, waterquality.CategoryBaik},
		{1.0, waterquality.CategoryBaik},
		{1.0001, waterquality.CategorySedang},
		{3, waterquality.CategorySedang},
		{5.0, waterquality.CategorySedang},
		{5.01, waterquality.CategoryBuruk},
		{10, waterquality.CategoryBuruk},
	}

	for _, tt := range tests {
		got := waterquality.Classify(tt.index)
		assert.Equal(t, tt.want, got, "index %v", tt.index)
	}
}

func TestIndexThenClassify_MatchesForecastCategory(t *testing.T) {
	v := waterquality.ParameterVector{Ammonia: 1, BOD: 4, COD: 20, DO: 5, Nitrat: 15, PH: 8.7, TDS: 700, TSS: 30}
	idx := waterquality.PollutionIndex(v)

	forecaster := waterquality.NewForecaster(waterquality.ForecasterConfig{
		Reference: &fakeReference{samples: referenceSamples()},
		Rand:      constRand(0.5),
	})
	series := forecaster.Forecast(t.Context(), historyOf("KLHK11", idx, idx, idx), "KLHK11")

	for _, r := range series {
		assert.Equal(t, waterquality.Classify(idx), r.Kategori)
	}
}

func TestPrepareRecords(t *testing.T) {
	sedang := waterquality.ParameterVector{Ammonia: 0.3, BOD: 8, COD: 30, DO: 3, Nitrat: 5, PH: 7.5, TDS: 250, TSS: 10}
	date := func(d int) waterquality.Date { return waterquality.NewDate(2025, time.March, d) }

	input := []waterquality.PollutionRecord{
		{Date: date(3), IndeksPencemaran: 6.2, Kategori: waterquality.CategoryBaik},
		{Date: date(1), ParameterVector: sedang},
		{Date: date(2), IndeksPencemaran: 0.4},
	}

	got := waterquality.PrepareRecords(input)

	require.Len(t, got, 3)
	assert.Equal(t, []waterquality.Date{date(1), date(2), date(3)},
		[]waterquality.Date{got[0].Date, got[1].Date, got[2].Date})

	assert.InDelta(t, 1.3375, got[0].IndeksPencemaran, 1e-9)
	assert.Equal(t, waterquality.CategorySedang, got[0].Kategori)
	assert.Equal(t, waterquality.CategoryBaik, got[1].Kategori)
	assert.Equal(t, waterquality.CategoryBuruk, got[2].Kategori)

	// The caller's slice is not reordered or modified.
	assert.Equal(t, date(3), input[0].Date)
	assert.Zero(t, input[1].IndeksPencemaran)
	assert.Equal(t, waterquality.CategoryBaik, input[0].Kategori)
}
