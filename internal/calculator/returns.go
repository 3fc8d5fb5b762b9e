package calculator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPrice marks a price that is zero, negative, NaN or infinite.
var ErrInvalidPrice = errors.New("invalid price")

// ValidPrice reports whether p can be used as a ratio operand.
func ValidPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

// ReturnRatio returns closes[n-1] / closes[n-window], the trailing return
// ratio over `window` observations counted from the last price.
func ReturnRatio(closes []float64, window int) (float64, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	n := len(closes)
	if n < window {
		return 0, fmt.Errorf("return(%d) needs %d prices, have %d: %w", window, window, n, ErrNotEnoughData)
	}
	current, anchor := closes[n-1], closes[n-window]
	if !ValidPrice(current) {
		return 0, fmt.Errorf("current close %v: %w", current, ErrInvalidPrice)
	}
	if !ValidPrice(anchor) {
		return 0, fmt.Errorf("anchor close %v at %d: %w", anchor, n-window, ErrInvalidPrice)
	}
	ratio := current / anchor
	if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		return 0, fmt.Errorf("ratio %v/%v: %w", current, anchor, ErrInvalidPrice)
	}
	return ratio, nil
}

// WeightedScore combines four window ratios, shortest first, with the
// shortest counted twice.
func WeightedScore(ratios []float64) float64 {
	if len(ratios) == 0 {
		return 0
	}
	score := 2 * ratios[0]
	for _, r := range ratios[1:] {
		score += r
	}
	return score
}

// QuarterReturnPct expresses a ratio as a percentage change.
func QuarterReturnPct(ratio float64) float64 {
	return (ratio - 1) * 100
}
