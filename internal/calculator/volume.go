package calculator

import (
	"errors"
	"fmt"

	"github.com/markcheno/go-talib"
)

// VolumeExpansion reports whether the average of the last `window` volumes
// exceeds `ratio` times the average of the `window` volumes before them.
func VolumeExpansion(volumes []float64, window int, ratio float64) (bool, error) {
	if window <= 0 {
		return false, errors.New("window must be positive")
	}
	n := len(volumes)
	if n < 2*window {
		return false, fmt.Errorf("volume expansion needs %d volumes, have %d: %w", 2*window, n, ErrNotEnoughData)
	}
	avg := talib.Sma(volumes, window)
	recent, prior := avg[n-1], avg[n-1-window]
	if prior <= 0 {
		return false, nil
	}
	return recent > ratio*prior, nil
}
