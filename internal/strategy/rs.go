package strategy

import (
	"errors"

	"TrendScreener/internal/calculator"
	"TrendScreener/internal/model"
)

// Returns computes the trailing return ratios of a series under the
// configured eligibility policy.
//
// A series shorter than the policy's minimum yields *InsufficientHistoryError.
// A bad current close yields *ArithmeticError in both modes. A bad anchor
// excludes the instrument in strict mode and neutral-fills that window in
// lenient mode, as does a missing anchor.
func Returns(s model.PriceSeries, cfg Config) (model.ReturnVector, error) {
	n := s.Len()
	if need := cfg.MinHistory(); n < need {
		return model.ReturnVector{}, &InsufficientHistoryError{Symbol: s.Symbol, Have: n, Need: need}
	}
	closes := s.Closes()
	if current := closes[n-1]; !calculator.ValidPrice(current) {
		return model.ReturnVector{}, &ArithmeticError{Symbol: s.Symbol, Price: current, Err: calculator.ErrInvalidPrice}
	}

	rv := model.ReturnVector{
		Windows: append([]int(nil), cfg.LookbackWindows...),
		Ratios:  make([]float64, len(cfg.LookbackWindows)),
		Defined: make([]bool, len(cfg.LookbackWindows)),
	}
	for i, w := range cfg.LookbackWindows {
		ratio, err := calculator.ReturnRatio(closes, w)
		switch {
		case err == nil:
			rv.Ratios[i], rv.Defined[i] = ratio, true
		case errors.Is(err, calculator.ErrInvalidPrice) && cfg.MinHistoryMode == HistoryStrict:
			return model.ReturnVector{}, &ArithmeticError{Symbol: s.Symbol, Window: w, Price: closes[n-w], Err: err}
		default:
			rv.Ratios[i] = 1.0
		}
	}
	return rv, nil
}

// Relative computes the benchmark-relative view of a series: per-window RS
// values and the RS line now and SlopeLookbackOffset observations earlier,
// all over the date-aligned pair.
func Relative(s model.PriceSeries, bench model.PriceSeries, cfg Config) *model.RelativeStrength {
	ic, bc := calculator.AlignCloses(s.Bars, bench.Bars)
	rel := &model.RelativeStrength{
		Values:  make([]float64, len(cfg.LookbackWindows)),
		Defined: make([]bool, len(cfg.LookbackWindows)),
	}
	for i, w := range cfg.LookbackWindows {
		if v, err := calculator.RelativeReturn(ic, bc, w); err == nil {
			rel.Values[i], rel.Defined[i] = v, true
		}
	}
	if v, err := calculator.RSLineAt(ic, bc, 0); err == nil {
		rel.Line, rel.HasLine = v, true
	}
	if v, err := calculator.RSLineAt(ic, bc, cfg.SlopeLookbackOffset); err == nil {
		rel.LinePrev, rel.HasLinePrev = v, true
	}
	return rel
}

// RSLineRising reports whether the RS line is above its earlier value.
func RSLineRising(rel *model.RelativeStrength) bool {
	return rel != nil && rel.HasLine && rel.HasLinePrev && rel.Line > rel.LinePrev
}
