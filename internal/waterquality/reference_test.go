package waterquality_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

func TestBuildModels_OrdinaryLeastSquares(t *testing.T) {
	samples := []waterquality.ReferenceSample{
		{BOD: ptr(1.0), IndeksPencemaran: 0.2, Kategori: waterquality.CategoryBaik},
		{BOD: ptr(1.4), IndeksPencemaran: 0.8, Kategori: waterquality.CategoryBaik},
	}

	models := waterquality.BuildModels(samples)

	m, ok := models.Lookup(waterquality.ParamBOD, waterquality.CategoryBaik)
	require.True(t, ok)

	n := 2.0
	sumX, sumY := 0.2+0.8, 1.0+1.4
	sumXY := 0.2*1.0 + 0.8*1.4
	sumXX := 0.2*0.2 + 0.8*0.8
	wantSlope := (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	wantIntercept := (sumY - wantSlope*sumX) / n

	assert.InDelta(t, wantSlope, m.Slope, 1e-9)
	assert.InDelta(t, wantIntercept, m.Intercept, 1e-9)
	assert.InDelta(t, 0.6667, m.Slope, 1e-4)
	assert.InDelta(t, 0.8667, m.Intercept, 1e-4)
	assert.InDelta(t, 1.0, m.RSquared, 1e-9)
	assert.InDelta(t, 1.2, m.Mean, 1e-9)
	assert.InDelta(t, 1.2, m.Median, 1e-9)
	assert.InDelta(t, 0.2, m.StdDev, 1e-9)
	assert.Equal(t, 1.0, m.Min)
	assert.Equal(t, 1.4, m.Max)
	assert.Equal(t, 2, m.SampleCount)
}

func TestBuildModels_AbsentPartitions(t *testing.T) {
	samples := []waterquality.ReferenceSample{
		{BOD: ptr(1.0), IndeksPencemaran: 0.2, Kategori: waterquality.CategoryBaik},
		{COD: ptr(12), IndeksPencemaran: 2.0, Kategori: waterquality.CategorySedang},
	}

	models := waterquality.BuildModels(samples)

	_, ok := models.Lookup(waterquality.ParamBOD, waterquality.CategorySedang)
	assert.False(t, ok, "no Sedang sample has BOD")

	_, ok = models.Lookup(waterquality.ParamCOD, waterquality.CategoryBaik)
	assert.False(t, ok, "no Baik sample has COD")

	_, ok = models.Lookup(waterquality.ParamTSS, waterquality.CategoryBuruk)
	assert.False(t, ok)

	_, ok = models.Lookup(waterquality.ParamCOD, waterquality.CategorySedang)
	assert.True(t, ok)
}

func TestBuildModels_MissingLabelIsBaik(t *testing.T) {
	samples := []waterquality.ReferenceSample{
		{Ammonia: ptr(0.3), IndeksPencemaran: 0.5},
	}

	models := waterquality.BuildModels(samples)

	m, ok := models.Lookup(waterquality.ParamAmmonia, waterquality.CategoryBaik)
	require.True(t, ok)
	assert.Equal(t, 1, m.SampleCount)
}

func TestBuildModels_DegeneratePartition(t *testing.T) {
	samples := []waterquality.ReferenceSample{
		{DO: ptr(6.0), IndeksPencemaran: 0.5, Kategori: waterquality.CategoryBaik},
		{DO: ptr(7.0), IndeksPencemaran: 0.5, Kategori: waterquality.CategoryBaik},
		{DO: ptr(8.0), IndeksPencemaran: 0.5, Kategori: waterquality.CategoryBaik},
	}

	m, ok := waterquality.BuildModels(samples).Lookup(waterquality.ParamDO, waterquality.CategoryBaik)
	require.True(t, ok)

	assert.Equal(t, 0.0, m.Slope)
	assert.InDelta(t, 7.0, m.Intercept, 1e-9)
	assert.Equal(t, 0.0, m.RSquared)
}

func TestBuildModels_ConstantValuesHaveZeroRSquared(t *testing.T) {
	samples := []waterquality.ReferenceSample{
		{PH: ptr(7.0), IndeksPencemaran: 0.2, Kategori: waterquality.CategoryBaik},
		{PH: ptr(7.0), IndeksPencemaran: 0.9, Kategori: waterquality.CategoryBaik},
	}

	m, ok := waterquality.BuildModels(samples).Lookup(waterquality.ParamPH, waterquality.CategoryBaik)
	require.True(t, ok)

	assert.Equal(t, 0.0, m.RSquared)
	assert.InDelta(t, 0.0, m.Slope, 1e-12)
	assert.InDelta(t, 7.0, m.Intercept, 1e-9)
}

func TestBuildModels_EvenMedian(t *testing.T) {
	samples := []waterquality.ReferenceSample{
		{TDS: ptr(400), IndeksPencemaran: 2, Kategori: waterquality.CategorySedang},
		{TDS: ptr(100), IndeksPencemaran: 1.5, Kategori: waterquality.CategorySedang},
		{TDS: ptr(300), IndeksPencemaran: 3, Kategori: waterquality.CategorySedang},
		{TDS: ptr(200), IndeksPencemaran: 4, Kategori: waterquality.CategorySedang},
	}

	m, ok := waterquality.BuildModels(samples).Lookup(waterquality.ParamTDS, waterquality.CategorySedang)
	require.True(t, ok)

	assert.InDelta(t, 250.0, m.Median, 1e-9)
	assert.Equal(t, 100.0, m.Min)
	assert.Equal(t, 400.0, m.Max)
}

func TestBuildModels_Empty(t *testing.T) {
	models := waterquality.BuildModels(nil)

	for _, p := range waterquality.AllParameters {
		for _, c := range waterquality.AllCategories {
			_, ok := models.Lookup(p, c)
			assert.False(t, ok)
		}
	}
}
