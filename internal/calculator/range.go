package calculator

import (
	"errors"
	"fmt"
	"math"

	"TrendScreener/internal/model"
)

// TradingDaysPerYear is the bar count of a 52-week window.
const TradingDaysPerYear = 252

// CalculateRange scans the most recent `window` bars and returns the high and
// low. Bars without intraday extremes fall back to the close. A series shorter
// than the window has no range and yields ErrNotEnoughData.
func CalculateRange(dailyBars []model.Bar, window int) (high, low float64, err error) {
	if len(dailyBars) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	if window <= 0 {
		return 0, 0, errors.New("window must be positive")
	}
	n := len(dailyBars)
	if n < window {
		return 0, 0, fmt.Errorf("range needs %d bars, have %d: %w", window, n, ErrNotEnoughData)
	}
	start := n - window
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		h, l := dailyBars[i].High, dailyBars[i].Low
		if h <= 0 {
			h = dailyBars[i].Close
		}
		if l <= 0 {
			l = dailyBars[i].Close
		}
		if h > high {
			high = h
		}
		if l < low {
			low = l
		}
	}
	return high, low, nil
}
