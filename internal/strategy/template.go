package strategy

import "TrendScreener/internal/model"

const (
	lowRecoveryFactor = 1.30
	highProximity     = 0.75
)

// TrendInputs are the per-instrument values the trend template reads.
type TrendInputs struct {
	Close    float64
	MA       model.MovingAverageSet
	High52w  float64
	Low52w   float64
	HasRange bool
	// RSTrend is the outcome of the mode-specific RS criterion.
	RSTrend bool
}

// EvaluateTemplate runs the eight trend criteria. Criteria whose inputs are
// unavailable are false.
func EvaluateTemplate(in TrendInputs) model.TrendChecklist {
	var c model.TrendChecklist
	ma := in.MA

	c.Criteria[0] = ma.HasMid && ma.HasLong && in.Close > ma.Mid && in.Close > ma.Long
	c.Criteria[1] = ma.HasMid && ma.HasLong && ma.Mid > ma.Long
	c.Criteria[2] = ma.HasLong && ma.HasLongPrev && ma.Long > ma.LongPrev
	c.Criteria[3] = ma.HasShort && ma.HasMid && ma.HasLong && ma.Short > ma.Mid && ma.Short > ma.Long
	c.Criteria[4] = ma.HasShort && in.Close > ma.Short
	c.Criteria[5] = in.HasRange && in.Close >= lowRecoveryFactor*in.Low52w
	c.Criteria[6] = in.HasRange && in.Close >= highProximity*in.High52w
	c.Criteria[7] = in.RSTrend
	return c
}

// ExplosiveSetup reports a fully stacked trend: close > MA50 > MA150 > MA200.
func ExplosiveSetup(close float64, ma model.MovingAverageSet) bool {
	return ma.HasShort && ma.HasMid && ma.HasLong &&
		close > ma.Short && ma.Short > ma.Mid && ma.Mid > ma.Long
}
