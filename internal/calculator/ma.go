package calculator

import (
	"errors"
	"fmt"

	"github.com/markcheno/go-talib"

	"TrendScreener/internal/model"
)

// ErrNotEnoughData is returned when a series is shorter than the lookback a
// calculation needs.
var ErrNotEnoughData = errors.New("not enough data")

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	return SMAAt(prices, period, 0)
}

// SMAAt returns the simple moving average ending `back` observations before
// the last price.
func SMAAt(prices []float64, period, back int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if back < 0 {
		return 0, errors.New("back must not be negative")
	}
	end := len(prices) - back
	if end < period {
		return 0, fmt.Errorf("sma(%d) needs %d prices, have %d: %w", period, period+back, len(prices), ErrNotEnoughData)
	}
	series := talib.Sma(prices[:end], period)
	return series[end-1], nil
}

// MovingAverages computes the short/mid/long SMAs of close and the long SMA
// `offset` observations earlier. Averages the series is too short for are
// left unset.
func MovingAverages(closes []float64, windows []int, offset int) model.MovingAverageSet {
	var set model.MovingAverageSet
	if len(windows) != 3 {
		return set
	}
	if v, err := CalculateSMA(closes, windows[0]); err == nil {
		set.Short, set.HasShort = v, true
	}
	if v, err := CalculateSMA(closes, windows[1]); err == nil {
		set.Mid, set.HasMid = v, true
	}

	long := windows[2]
	if long <= 0 || len(closes) < long {
		return set
	}
	series := talib.Sma(closes, long)
	n := len(closes)
	set.Long, set.HasLong = series[n-1], true
	if prev := n - 1 - offset; offset > 0 && prev >= long-1 {
		set.LongPrev, set.HasLongPrev = series[prev], true
	}
	return set
}
