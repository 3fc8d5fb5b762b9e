package strategy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendScreener/internal/model"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func makeSeries(symbol string, closes []float64) model.PriceSeries {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{Date: day0.AddDate(0, 0, i), Close: c, Volume: 1000}
	}
	return model.PriceSeries{Symbol: symbol, Bars: bars}
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// rally is flat at 100 and climbs linearly to 150 over the last 59 bars, so
// close[-1] / close[-60] is exactly 1.5.
func rally(n int) []float64 {
	out := flat(n, 100)
	start := n - 60
	for i := start + 1; i < n; i++ {
		out[i] = 100 + 50*float64(i-start)/59
	}
	return out
}

func threeInstruments() model.Universe {
	return model.Universe{Series: []model.PriceSeries{
		makeSeries("B", flat(300, 100)),
		makeSeries("A", rally(300)),
		makeSeries("C", flat(300, 100)),
	}}
}

func recordFor(t *testing.T, res *Result, symbol string) model.ScreenRecord {
	t.Helper()
	for _, r := range res.Records {
		if r.Symbol == symbol {
			return r
		}
	}
	t.Fatalf("no record for %s", symbol)
	return model.ScreenRecord{}
}

func TestScreen_RallyLeadsUniverse(t *testing.T) {
	res, err := Screen(threeInstruments(), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, res.Records, 3)

	a := res.Records[0]
	assert.Equal(t, "A", a.Symbol)
	assert.InDelta(t, 1.5, a.Returns.Ratios[0], 1e-12)
	assert.InDelta(t, 50.0, a.QuarterReturnPct, 1e-9)
	assert.Equal(t, 100.0, a.RSScore)
	assert.True(t, a.Checklist.Criteria[4], "close above MA50")
	assert.Equal(t, 8, a.TotalScore)
	assert.True(t, a.ExplosiveSetup)

	for _, sym := range []string{"B", "C"} {
		r := recordFor(t, res, sym)
		assert.Less(t, r.WeightedScore, a.WeightedScore)
		assert.InDelta(t, 50.0, r.RSScore, 1e-9, "tied scores share the average rank")
		assert.False(t, r.Checklist.Criteria[4])
		assert.False(t, r.ExplosiveSetup)
	}
	// B and C tie on score and RS; symbol breaks the tie.
	assert.Equal(t, "B", res.Records[1].Symbol)
	assert.Equal(t, "C", res.Records[2].Symbol)

	assert.Equal(t, 3, res.Summary.Universe)
	assert.Equal(t, 3, res.Summary.Eligible)
	assert.Equal(t, 1, res.Summary.Strong)
	assert.Equal(t, []model.ScreenRecord{a}, res.Radar(90))
}

func TestScreen_LinearSeriesReturns(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	res, err := Screen(model.Universe{Series: []model.PriceSeries{makeSeries("LIN", closes)}}, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rv := res.Records[0].Returns
	for i, w := range []int{60, 120, 180, 240} {
		assert.Equal(t, 300.0/float64(300-w+1), rv.Ratios[i], "window %d", w)
		assert.True(t, rv.Defined[i])
	}
}

func TestScreen_HistoryModes(t *testing.T) {
	universe := model.Universe{Series: []model.PriceSeries{
		makeSeries("LONG", rally(300)),
		makeSeries("SHORT", rally(100)),
	}}

	strict := DefaultConfig()
	res, err := Screen(universe, strict)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "LONG", res.Records[0].Symbol)
	require.Len(t, res.Exclusions, 1)
	assert.Equal(t, model.ExclusionInsufficientHistory, res.Exclusions[0].Reason)
	var ih *InsufficientHistoryError
	require.True(t, errors.As(res.Exclusions[0].Err, &ih))
	assert.Equal(t, 100, ih.Have)
	assert.Equal(t, 240, ih.Need)
	assert.Equal(t, 1, res.Summary.Excluded[model.ExclusionInsufficientHistory])

	lenient := DefaultConfig()
	lenient.MinHistoryMode = HistoryLenient
	res, err = Screen(universe, lenient)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Empty(t, res.Exclusions)

	short := recordFor(t, res, "SHORT")
	assert.Equal(t, []bool{true, false, false, false}, short.Returns.Defined)
	assert.Equal(t, []float64{1.0, 1.0, 1.0}, short.Returns.Ratios[1:])
	assert.InDelta(t, 2*1.5+3, short.WeightedScore, 1e-12)
	assert.GreaterOrEqual(t, short.TotalScore, 0)
	assert.LessOrEqual(t, short.TotalScore, 8)
	assert.False(t, short.Checklist.Criteria[0], "MA150 undefined")
	assert.False(t, short.Checklist.Criteria[2], "MA200 slope undefined")
}

func TestScreen_ShortHistoryHasNoRange(t *testing.T) {
	tests := []struct {
		name string
		bars int
		mode HistoryMode
	}{
		{"lenient 100 bars", 100, HistoryLenient},
		{"strict 240 bars", 240, HistoryStrict},
		{"strict 251 bars", 251, HistoryStrict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MinHistoryMode = tt.mode
			res, err := Screen(model.Universe{Series: []model.PriceSeries{makeSeries("A", rally(tt.bars))}}, cfg)
			require.NoError(t, err)
			require.Len(t, res.Records, 1)

			r := res.Records[0]
			assert.False(t, r.Checklist.Criteria[5], "no 52-week low")
			assert.False(t, r.Checklist.Criteria[6], "no 52-week high")
			assert.Zero(t, r.High52w)
			assert.Zero(t, r.Low52w)
		})
	}

	res, err := Screen(model.Universe{Series: []model.PriceSeries{makeSeries("A", rally(252))}}, DefaultConfig())
	require.NoError(t, err)
	r := res.Records[0]
	assert.True(t, r.Checklist.Criteria[5])
	assert.True(t, r.Checklist.Criteria[6])
	assert.Equal(t, 150.0, r.High52w)
	assert.Equal(t, 100.0, r.Low52w)
}

func TestScreen_BenchmarkRelative(t *testing.T) {
	inst := flat(252, 100)
	inst[251] = 110
	bench := makeSeries("INDEX", flat(252, 1000))

	cfg := DefaultConfig()
	cfg.RSMode = RSBenchmarkRelative
	res, err := Screen(model.Universe{
		Series:    []model.PriceSeries{makeSeries("X", inst)},
		Benchmark: &bench,
	}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rel := res.Records[0].Relative
	require.NotNil(t, rel)
	assert.InDelta(t, 11.0, rel.Line, 1e-12)
	assert.InDelta(t, 10.0, rel.LinePrev, 1e-12)
	assert.True(t, res.Records[0].Checklist.Criteria[7])
	assert.InDelta(t, 110.0, rel.Values[0], 1e-9)
	assert.Equal(t, []bool{true, true, true, true}, rel.Defined)
}

func TestScreen_MissingBenchmark(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RSMode = RSBenchmarkRelative

	_, err := Screen(threeInstruments(), cfg)
	assert.ErrorIs(t, err, ErrMissingBenchmark)

	_, err = Screen(model.Universe{Benchmark: &model.PriceSeries{Symbol: "INDEX"}}, cfg)
	assert.ErrorIs(t, err, ErrMissingBenchmark)
}

func TestScreen_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"repeated window", func(c *Config) { c.LookbackWindows = []int{60, 60, 180, 240} }},
		{"descending windows", func(c *Config) { c.LookbackWindows = []int{240, 180, 120, 60} }},
		{"three windows", func(c *Config) { c.LookbackWindows = []int{60, 120, 180} }},
		{"ma windows", func(c *Config) { c.MAWindows = []int{200, 150, 50} }},
		{"history mode", func(c *Config) { c.MinHistoryMode = "loose" }},
		{"rs mode", func(c *Config) { c.RSMode = "zscore" }},
		{"offset", func(c *Config) { c.SlopeLookbackOffset = 0 }},
		{"threshold", func(c *Config) { c.RSAbsoluteThreshold = 101 }},
		{"volume window", func(c *Config) { c.VolumeExpansion = VolumeExpansionConfig{Enabled: true, Ratio: 1.1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := Screen(threeInstruments(), cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestScreen_EmptyUniverse(t *testing.T) {
	res, err := Screen(model.Universe{}, DefaultConfig())
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Filter(0, 0))
	assert.Equal(t, 0, res.Summary.Universe)
}

func TestScreen_ArithmeticFailures(t *testing.T) {
	badAnchor := rally(300)
	badAnchor[300-240] = 0
	badCurrent := flat(300, 100)
	badCurrent[299] = 0
	universe := model.Universe{Series: []model.PriceSeries{
		makeSeries("ANCHOR", badAnchor),
		makeSeries("CURRENT", badCurrent),
		makeSeries("OK", flat(300, 100)),
	}}

	res, err := Screen(universe, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "OK", res.Records[0].Symbol)
	assert.Equal(t, 2, res.Summary.Excluded[model.ExclusionArithmetic])
	for _, ex := range res.Exclusions {
		var ae *ArithmeticError
		require.True(t, errors.As(ex.Err, &ae), ex.Symbol)
		switch ex.Symbol {
		case "ANCHOR":
			assert.Equal(t, 240, ae.Window)
		case "CURRENT":
			assert.Equal(t, 0, ae.Window)
		}
	}

	cfg := DefaultConfig()
	cfg.MinHistoryMode = HistoryLenient
	res, err = Screen(universe, cfg)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	anchor := recordFor(t, res, "ANCHOR")
	assert.False(t, anchor.Returns.Defined[3])
	assert.Equal(t, 1.0, anchor.Returns.Ratios[3])
	require.Len(t, res.Exclusions, 1)
	assert.Equal(t, "CURRENT", res.Exclusions[0].Symbol)
}

func TestScreen_InvalidSeries(t *testing.T) {
	s := makeSeries("BAD", flat(300, 100))
	s.Bars[10].Date = s.Bars[9].Date

	res, err := Screen(model.Universe{Series: []model.PriceSeries{s, makeSeries("BAD", flat(300, 100))}}, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 2, res.Summary.Excluded[model.ExclusionInvalidSeries])
}

func TestScreen_Idempotent(t *testing.T) {
	universe := threeInstruments()
	for i := 0; i < 20; i++ {
		universe.Series = append(universe.Series, makeSeries(string(rune('D'+i)), rally(250+i)))
	}

	one := DefaultConfig()
	one.Workers = 1
	many := DefaultConfig()
	many.Workers = 8

	first, err := Screen(universe, one)
	require.NoError(t, err)
	second, err := Screen(universe, many)
	require.NoError(t, err)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Summary, second.Summary)
}

func TestResult_Filter(t *testing.T) {
	res, err := Screen(threeInstruments(), DefaultConfig())
	require.NoError(t, err)

	all := res.Filter(0, 0)
	assert.Equal(t, res.Records, all)

	seen := map[string]int{}
	for _, r := range all {
		seen[r.Symbol]++
	}
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1}, seen)

	top := res.Filter(8, 5)
	require.Len(t, top, 1)
	assert.Equal(t, "A", top[0].Symbol)

	assert.Len(t, res.Filter(0, 2), 2)
	assert.Empty(t, res.FilterWith(FilterOptions{RequireVolumeExpansion: true}))
	assert.False(t, res.Empty())
}

func TestScreen_VolumeGate(t *testing.T) {
	surge := makeSeries("SURGE", rally(300))
	for i := 280; i < 300; i++ {
		surge.Bars[i].Volume = 5000
	}
	universe := model.Universe{Series: []model.PriceSeries{surge, makeSeries("QUIET", flat(300, 100))}}

	cfg := DefaultConfig()
	cfg.VolumeExpansion.Enabled = true
	res, err := Screen(universe, cfg)
	require.NoError(t, err)

	s := recordFor(t, res, "SURGE")
	assert.True(t, s.VolumeChecked)
	assert.True(t, s.VolumeExpansion)
	q := recordFor(t, res, "QUIET")
	assert.True(t, q.VolumeChecked)
	assert.False(t, q.VolumeExpansion)

	gated := res.FilterWith(FilterOptions{RequireVolumeExpansion: true})
	require.Len(t, gated, 1)
	assert.Equal(t, "SURGE", gated[0].Symbol)
	// the gate never feeds the eight-point total
	assert.Equal(t, 8, s.TotalScore)
}

func TestResult_Lookup(t *testing.T) {
	universe := threeInstruments()
	res, err := Screen(universe, DefaultConfig())
	require.NoError(t, err)

	got, ok := res.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, universe.Series[1], got)
	assert.Same(t, &universe.Series[1].Bars[0], &got.Bars[0])

	_, ok = res.Lookup("ZZZ")
	assert.False(t, ok)
}

func TestEvaluateTemplate_UnavailableInputs(t *testing.T) {
	c := EvaluateTemplate(TrendInputs{Close: 100})
	assert.Equal(t, 0, c.Total())

	c = EvaluateTemplate(TrendInputs{Close: 100, RSTrend: true})
	assert.Equal(t, 1, c.Total())
	assert.True(t, c.Labeled()["rs_trend"])
}
