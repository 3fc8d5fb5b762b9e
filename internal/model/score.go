package model

import "time"

// NumCriteria is the size of the trend checklist.
const NumCriteria = 8

// CriterionLabels are the stable column names of the trend checklist, in
// evaluation order.
var CriterionLabels = [NumCriteria]string{
	"price_above_ma150_ma200",
	"ma150_above_ma200",
	"ma200_rising",
	"ma50_above_ma150_ma200",
	"price_above_ma50",
	"above_52w_low_30pct",
	"within_25pct_of_52w_high",
	"rs_trend",
}

// ReturnVector holds the trailing return ratio for each lookback window.
// Undefined windows carry the neutral ratio 1.0.
type ReturnVector struct {
	Windows []int
	Ratios  []float64
	Defined []bool
}

// Ratio returns the ratio for the i-th window.
func (r ReturnVector) Ratio(i int) float64 {
	if i < 0 || i >= len(r.Ratios) {
		return 1.0
	}
	return r.Ratios[i]
}

// MovingAverageSet carries the short/mid/long simple moving averages of close
// (50/150/200 by default) and the long average's value a slope offset ago.
type MovingAverageSet struct {
	Short       float64
	Mid         float64
	Long        float64
	LongPrev    float64
	HasShort    bool
	HasMid      bool
	HasLong     bool
	HasLongPrev bool
}

// TrendChecklist is the eight-point trend template outcome.
type TrendChecklist struct {
	Criteria [NumCriteria]bool
}

// Total counts the passing criteria.
func (c TrendChecklist) Total() int {
	n := 0
	for _, ok := range c.Criteria {
		if ok {
			n++
		}
	}
	return n
}

// Labeled returns the checklist keyed by stable label.
func (c TrendChecklist) Labeled() map[string]bool {
	m := make(map[string]bool, NumCriteria)
	for i, label := range CriterionLabels {
		m[label] = c.Criteria[i]
	}
	return m
}

// RelativeStrength is the benchmark-relative view of an instrument: the
// per-window ratio of instrument to benchmark return (x100) and the RS line
// now and one slope offset earlier.
type RelativeStrength struct {
	Values      []float64
	Defined     []bool
	Line        float64
	LinePrev    float64
	HasLine     bool
	HasLinePrev bool
}

// ScreenRecord is the flat per-instrument output of a scoring run.
type ScreenRecord struct {
	Symbol           string
	AsOf             time.Time
	Close            float64
	High52w          float64
	Low52w           float64
	Returns          ReturnVector
	WeightedScore    float64
	RSScore          float64
	QuarterReturnPct float64
	Relative         *RelativeStrength
	MovingAverages   MovingAverageSet
	Checklist        TrendChecklist
	TotalScore       int
	ExplosiveSetup   bool
	VolumeChecked    bool
	VolumeExpansion  bool
}

// ExclusionReason names why an instrument was left out of a run.
type ExclusionReason string

const (
	ExclusionInsufficientHistory ExclusionReason = "insufficient_history"
	ExclusionArithmetic          ExclusionReason = "arithmetic"
	ExclusionInvalidSeries       ExclusionReason = "invalid_series"
)

// Exclusion is the failure variant of a per-instrument computation.
type Exclusion struct {
	Symbol string
	Reason ExclusionReason
	Err    error
}

// RunSummary describes the universe a run was computed over.
type RunSummary struct {
	Universe    int
	Eligible    int
	Excluded    map[ExclusionReason]int
	Strong      int
	RSMode      string
	HistoryMode string
}
