package strategy

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingBenchmark fails a benchmark_relative run that has no benchmark series.
	ErrMissingBenchmark = errors.New("benchmark series required for benchmark_relative rs_mode")
	// ErrInvalidConfig is wrapped by every configuration contract violation.
	ErrInvalidConfig = errors.New("invalid screening config")
	// ErrInvalidSeries marks a series whose dates are not strictly ascending.
	ErrInvalidSeries = errors.New("invalid price series")
)

// InsufficientHistoryError excludes an instrument shorter than the eligibility bound.
type InsufficientHistoryError struct {
	Symbol string
	Have   int
	Need   int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%s: insufficient history: have %d bars, need %d", e.Symbol, e.Have, e.Need)
}

// ArithmeticError reports an unusable price behind a return ratio. Window is
// zero when the current close itself is bad.
type ArithmeticError struct {
	Symbol string
	Window int
	Price  float64
	Err    error
}

func (e *ArithmeticError) Error() string {
	if e.Window == 0 {
		return fmt.Sprintf("%s: current close %v unusable: %v", e.Symbol, e.Price, e.Err)
	}
	return fmt.Sprintf("%s: return(%d) anchor %v unusable: %v", e.Symbol, e.Window, e.Price, e.Err)
}

func (e *ArithmeticError) Unwrap() error { return e.Err }
