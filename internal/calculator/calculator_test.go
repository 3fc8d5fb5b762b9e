package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendScreener/internal/model"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func linear(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func barsFrom(closes []float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{Date: day0.AddDate(0, 0, i), Close: c}
	}
	return bars
}

func TestCalculateSMA(t *testing.T) {
	prices := linear(10)

	v, err := CalculateSMA(prices, 5)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, v, 1e-9)

	v, err = SMAAt(prices, 5, 2)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, v, 1e-9)

	_, err = CalculateSMA(prices, 11)
	assert.ErrorIs(t, err, ErrNotEnoughData)

	_, err = SMAAt(prices, 5, 6)
	assert.ErrorIs(t, err, ErrNotEnoughData)

	_, err = CalculateSMA(prices, 0)
	assert.Error(t, err)
}

func TestMovingAverages(t *testing.T) {
	windows := []int{50, 150, 200}

	set := MovingAverages(linear(300), windows, 22)
	require.True(t, set.HasShort)
	require.True(t, set.HasMid)
	require.True(t, set.HasLong)
	require.True(t, set.HasLongPrev)
	assert.InDelta(t, 275.5, set.Short, 1e-9)
	assert.InDelta(t, 225.5, set.Mid, 1e-9)
	assert.InDelta(t, 200.5, set.Long, 1e-9)
	assert.InDelta(t, 178.5, set.LongPrev, 1e-9)

	short := MovingAverages(linear(210), windows, 22)
	assert.True(t, short.HasLong)
	assert.False(t, short.HasLongPrev)

	tiny := MovingAverages(linear(100), windows, 22)
	assert.True(t, tiny.HasShort)
	assert.False(t, tiny.HasMid)
	assert.False(t, tiny.HasLong)
}

func TestCalculateRange(t *testing.T) {
	bars := []model.Bar{
		{Date: day0, Close: 10, High: 12, Low: 9},
		{Date: day0.AddDate(0, 0, 1), Close: 11},
		{Date: day0.AddDate(0, 0, 2), Close: 15, High: 16, Low: 14},
	}
	high, low, err := CalculateRange(bars, 3)
	require.NoError(t, err)
	assert.Equal(t, 16.0, high)
	assert.Equal(t, 9.0, low)

	high, low, err = CalculateRange(bars, 2)
	require.NoError(t, err)
	assert.Equal(t, 16.0, high)
	assert.Equal(t, 11.0, low)

	_, _, err = CalculateRange(bars, TradingDaysPerYear)
	assert.ErrorIs(t, err, ErrNotEnoughData)

	_, _, err = CalculateRange(nil, TradingDaysPerYear)
	assert.Error(t, err)
}

func TestReturnRatio(t *testing.T) {
	closes := linear(300)

	r, err := ReturnRatio(closes, 60)
	require.NoError(t, err)
	assert.InDelta(t, 300.0/241.0, r, 1e-12)

	r, err = ReturnRatio(closes, 300)
	require.NoError(t, err)
	assert.InDelta(t, 300.0, r, 1e-12)

	_, err = ReturnRatio(closes, 301)
	assert.ErrorIs(t, err, ErrNotEnoughData)

	tests := []struct {
		name   string
		closes []float64
	}{
		{"zero anchor", []float64{0, 1, 2}},
		{"negative anchor", []float64{-1, 1, 2}},
		{"nan current", []float64{1, 1, math.NaN()}},
		{"inf current", []float64{1, 1, math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReturnRatio(tt.closes, 3)
			assert.ErrorIs(t, err, ErrInvalidPrice)
		})
	}
}

func TestWeightedScore(t *testing.T) {
	assert.InDelta(t, 5.5, WeightedScore([]float64{1.5, 1, 1, 1}), 1e-12)
	assert.InDelta(t, 5.0, WeightedScore([]float64{1, 1, 1, 1}), 1e-12)
	assert.InDelta(t, 50.0, QuarterReturnPct(1.5), 1e-12)
}

func TestPercentRank(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{"empty", nil, []float64{}},
		{"single", []float64{5}, []float64{100}},
		{"distinct", []float64{3, 1, 2}, []float64{100, 100.0 / 3, 200.0 / 3}},
		{"ties", []float64{1, 2, 1, 2}, []float64{37.5, 87.5, 37.5, 87.5}},
		{"all equal", []float64{4, 4, 4}, []float64{100.0 * 2 / 3, 100.0 * 2 / 3, 100.0 * 2 / 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentRank(tt.values)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-9, "index %d", i)
			}
		})
	}
}

func TestPercentRankMonotonic(t *testing.T) {
	values := []float64{5.2, 4.9, 6.1, 5.2, 7.3, 3.0}
	ranks := PercentRank(values)
	for i := range values {
		assert.Greater(t, ranks[i], 0.0)
		assert.LessOrEqual(t, ranks[i], 100.0)
		for j := range values {
			if values[i] > values[j] {
				assert.Greater(t, ranks[i], ranks[j])
			}
		}
	}
}

func TestAlignAndRelative(t *testing.T) {
	inst := barsFrom([]float64{10, 11, 12, 13, 14})
	bench := barsFrom([]float64{100, 100, 100, 100, 110})
	// benchmark misses the second day
	bench = append(bench[:1], bench[2:]...)

	ic, bc := AlignCloses(inst, bench)
	assert.Equal(t, []float64{10, 12, 13, 14}, ic)
	assert.Equal(t, []float64{100, 100, 100, 110}, bc)

	rs, err := RelativeReturn(ic, bc, 4)
	require.NoError(t, err)
	assert.InDelta(t, (14.0/10.0)/1.1*100, rs, 1e-9)

	now, err := RSLineAt(ic, bc, 0)
	require.NoError(t, err)
	assert.InDelta(t, 14.0/110*100, now, 1e-9)

	prev, err := RSLineAt(ic, bc, 3)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, prev, 1e-9)

	_, err = RSLineAt(ic, bc, 4)
	assert.ErrorIs(t, err, ErrNotEnoughData)
}

func TestVolumeExpansion(t *testing.T) {
	vols := func(prior, recent float64) []float64 {
		out := make([]float64, 0, 40)
		for i := 0; i < 20; i++ {
			out = append(out, prior)
		}
		for i := 0; i < 20; i++ {
			out = append(out, recent)
		}
		return out
	}

	ok, err := VolumeExpansion(vols(100, 120), 20, 1.1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VolumeExpansion(vols(100, 105), 20, 1.1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = VolumeExpansion(vols(0, 105), 20, 1.1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VolumeExpansion(make([]float64, 39), 20, 1.1)
	assert.ErrorIs(t, err, ErrNotEnoughData)
}
