package strategy

import (
	"errors"
	"fmt"
	"sort"

	"TrendScreener/internal/calculator"
	"TrendScreener/internal/model"
	"TrendScreener/internal/util"
)

// Result is the output of one scoring run.
type Result struct {
	// Records holds every eligible instrument in canonical order.
	Records    []model.ScreenRecord
	Exclusions []model.Exclusion
	Summary    model.RunSummary

	series map[string]model.PriceSeries
}

// scored is the pass-one outcome for a single instrument.
type scored struct {
	record model.ScreenRecord
	inputs TrendInputs
	excl   *model.Exclusion
}

// Screen scores a universe: per-instrument returns, moving averages, range
// and benchmark values are computed in parallel, then RS percentiles are
// ranked across all eligible instruments and the trend template is applied.
//
// Configuration errors and a missing benchmark in benchmark_relative mode fail
// the run before any instrument is touched. Per-instrument failures become
// exclusions.
func Screen(universe model.Universe, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bench := universe.Benchmark
	if cfg.RSMode == RSBenchmarkRelative && (bench == nil || bench.Len() == 0) {
		return nil, ErrMissingBenchmark
	}
	if cfg.RSMode != RSBenchmarkRelative {
		bench = nil
	}

	res := &Result{
		Records: []model.ScreenRecord{},
		series:  make(map[string]model.PriceSeries, len(universe.Series)),
		Summary: model.RunSummary{
			Universe:    len(universe.Series),
			Excluded:    make(map[model.ExclusionReason]int),
			RSMode:      string(cfg.RSMode),
			HistoryMode: string(cfg.MinHistoryMode),
		},
	}

	duplicate := make([]bool, len(universe.Series))
	for i, s := range universe.Series {
		if _, ok := res.series[s.Symbol]; ok {
			duplicate[i] = true
			continue
		}
		res.series[s.Symbol] = s
	}

	// Pass one: independent per-instrument work.
	out := make([]scored, len(universe.Series))
	util.ForEach(len(universe.Series), cfg.Workers, func(i int) {
		s := universe.Series[i]
		if duplicate[i] {
			out[i] = excluded(s.Symbol, model.ExclusionInvalidSeries,
				fmt.Errorf("%s: duplicate symbol: %w", s.Symbol, ErrInvalidSeries))
			return
		}
		out[i] = scoreInstrument(s, bench, cfg)
	})

	// Barrier: rank only after every weighted score is known.
	var eligible []int
	for i := range out {
		if out[i].excl != nil {
			res.Exclusions = append(res.Exclusions, *out[i].excl)
			res.Summary.Excluded[out[i].excl.Reason]++
			continue
		}
		eligible = append(eligible, i)
	}
	weighted := make([]float64, len(eligible))
	for k, i := range eligible {
		weighted[k] = out[i].record.WeightedScore
	}
	ranks := calculator.PercentRank(weighted)

	// Pass two: RS criterion and total.
	for k, i := range eligible {
		rec := out[i].record
		rec.RSScore = ranks[k]

		in := out[i].inputs
		if cfg.RSMode == RSBenchmarkRelative {
			in.RSTrend = RSLineRising(rec.Relative)
		} else {
			in.RSTrend = rec.RSScore >= cfg.RSAbsoluteThreshold
		}
		rec.Checklist = EvaluateTemplate(in)
		rec.TotalScore = rec.Checklist.Total()

		if rec.RSScore >= cfg.RadarRSThreshold {
			res.Summary.Strong++
		}
		res.Records = append(res.Records, rec)
	}
	res.Summary.Eligible = len(res.Records)

	sortRecords(res.Records)
	sort.SliceStable(res.Exclusions, func(a, b int) bool {
		return res.Exclusions[a].Symbol < res.Exclusions[b].Symbol
	})
	return res, nil
}

func scoreInstrument(s model.PriceSeries, bench *model.PriceSeries, cfg Config) scored {
	if s.Len() > 0 && !s.Ordered() {
		return excluded(s.Symbol, model.ExclusionInvalidSeries,
			fmt.Errorf("%s: dates not strictly ascending: %w", s.Symbol, ErrInvalidSeries))
	}

	rv, err := Returns(s, cfg)
	if err != nil {
		var ae *ArithmeticError
		if errors.As(err, &ae) {
			return excluded(s.Symbol, model.ExclusionArithmetic, err)
		}
		return excluded(s.Symbol, model.ExclusionInsufficientHistory, err)
	}

	last, _ := s.Last()
	closes := s.Closes()
	rec := model.ScreenRecord{
		Symbol:           s.Symbol,
		AsOf:             last.Date,
		Close:            last.Close,
		Returns:          rv,
		WeightedScore:    calculator.WeightedScore(rv.Ratios),
		QuarterReturnPct: calculator.QuarterReturnPct(rv.Ratio(0)),
		MovingAverages:   calculator.MovingAverages(closes, cfg.MAWindows, cfg.SlopeLookbackOffset),
	}

	in := TrendInputs{Close: last.Close, MA: rec.MovingAverages}
	if high, low, err := calculator.CalculateRange(s.Bars, cfg.RangeWindow); err == nil {
		rec.High52w, rec.Low52w = high, low
		in.High52w, in.Low52w, in.HasRange = high, low, true
	}
	rec.ExplosiveSetup = ExplosiveSetup(last.Close, rec.MovingAverages)

	if cfg.VolumeExpansion.Enabled {
		expanded, err := calculator.VolumeExpansion(s.Volumes(), cfg.VolumeExpansion.Window, cfg.VolumeExpansion.Ratio)
		rec.VolumeChecked = err == nil
		rec.VolumeExpansion = expanded
	}
	if bench != nil {
		rec.Relative = Relative(s, *bench, cfg)
	}
	return scored{record: rec, inputs: in}
}

func excluded(symbol string, reason model.ExclusionReason, err error) scored {
	return scored{excl: &model.Exclusion{Symbol: symbol, Reason: reason, Err: err}}
}

// sortRecords applies the canonical order: TotalScore desc, RSScore desc,
// symbol asc.
func sortRecords(records []model.ScreenRecord) {
	sort.Slice(records, func(a, b int) bool {
		ra, rb := records[a], records[b]
		if ra.TotalScore != rb.TotalScore {
			return ra.TotalScore > rb.TotalScore
		}
		if ra.RSScore != rb.RSScore {
			return ra.RSScore > rb.RSScore
		}
		return ra.Symbol < rb.Symbol
	})
}

// FilterOptions narrows a result set. Zero values disable each gate.
type FilterOptions struct {
	MinTotalScore int
	// TopN caps the result count; <= 0 means unlimited.
	TopN                   int
	MinRSScore             float64
	RequireVolumeExpansion bool
	ExplosiveOnly          bool
}

// Filter returns the top-N records with TotalScore >= minTotal in canonical
// order. topN <= 0 returns every match.
func (r *Result) Filter(minTotal, topN int) []model.ScreenRecord {
	return r.FilterWith(FilterOptions{MinTotalScore: minTotal, TopN: topN})
}

// FilterWith applies every gate in opts, preserving canonical order.
func (r *Result) FilterWith(opts FilterOptions) []model.ScreenRecord {
	out := []model.ScreenRecord{}
	for _, rec := range r.Records {
		if rec.TotalScore < opts.MinTotalScore || rec.RSScore < opts.MinRSScore {
			continue
		}
		if opts.RequireVolumeExpansion && !rec.VolumeExpansion {
			continue
		}
		if opts.ExplosiveOnly && !rec.ExplosiveSetup {
			continue
		}
		out = append(out, rec)
		if opts.TopN > 0 && len(out) == opts.TopN {
			break
		}
	}
	return out
}

// Radar returns records at or above the radar RS threshold that also show an
// explosive setup.
func (r *Result) Radar(threshold float64) []model.ScreenRecord {
	return r.FilterWith(FilterOptions{MinRSScore: threshold, ExplosiveOnly: true})
}

// Lookup returns the input series for symbol unchanged.
func (r *Result) Lookup(symbol string) (model.PriceSeries, bool) {
	s, ok := r.series[symbol]
	return s, ok
}

// Empty reports whether no instrument was eligible, as opposed to none
// passing a filter.
func (r *Result) Empty() bool {
	return r.Summary.Eligible == 0
}
