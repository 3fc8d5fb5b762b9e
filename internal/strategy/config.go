package strategy

import (
	"fmt"

	"TrendScreener/internal/calculator"
)

// HistoryMode selects the minimum-history eligibility policy.
type HistoryMode string

const (
	// HistoryStrict requires the longest lookback window of history.
	HistoryStrict HistoryMode = "strict"
	// HistoryLenient requires only the shortest window and neutral-fills the rest.
	HistoryLenient HistoryMode = "lenient"
)

// RSMode selects how the RS criterion of the trend template is judged.
type RSMode string

const (
	// RSCrossSectional compares the percentile rank against an absolute threshold.
	RSCrossSectional RSMode = "cross_sectional_percentile"
	// RSBenchmarkRelative compares the RS line against its value a slope offset ago.
	RSBenchmarkRelative RSMode = "benchmark_relative"
)

// VolumeExpansionConfig controls the optional volume gate.
type VolumeExpansionConfig struct {
	Enabled bool    `yaml:"enabled"`
	Window  int     `yaml:"window"`
	Ratio   float64 `yaml:"ratio"`
}

// Config is the scoring configuration of one run.
type Config struct {
	LookbackWindows     []int                 `yaml:"lookback_windows"`
	MinHistoryMode      HistoryMode           `yaml:"min_history_mode"`
	RSMode              RSMode                `yaml:"rs_mode"`
	MAWindows           []int                 `yaml:"ma_windows"`
	SlopeLookbackOffset int                   `yaml:"slope_lookback_offset"`
	RSAbsoluteThreshold float64               `yaml:"rs_absolute_threshold"`
	RangeWindow         int                   `yaml:"range_window"`
	VolumeExpansion     VolumeExpansionConfig `yaml:"volume_expansion"`
	RadarRSThreshold    float64               `yaml:"radar_rs_threshold"`
	Workers             int                   `yaml:"workers"`
}

// DefaultConfig returns the standard 60/120/180/240 strict percentile setup.
func DefaultConfig() Config {
	return Config{
		LookbackWindows:     []int{60, 120, 180, 240},
		MinHistoryMode:      HistoryStrict,
		RSMode:              RSCrossSectional,
		MAWindows:           []int{50, 150, 200},
		SlopeLookbackOffset: 22,
		RSAbsoluteThreshold: 70,
		RangeWindow:         calculator.TradingDaysPerYear,
		VolumeExpansion: VolumeExpansionConfig{
			Enabled: false,
			Window:  20,
			Ratio:   1.1,
		},
		RadarRSThreshold: 90,
	}
}

// Validate checks the configuration contract. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if err := ascending("lookback_windows", c.LookbackWindows, 4); err != nil {
		return err
	}
	if err := ascending("ma_windows", c.MAWindows, 3); err != nil {
		return err
	}
	switch c.MinHistoryMode {
	case HistoryStrict, HistoryLenient:
	default:
		return fmt.Errorf("%w: unknown min_history_mode %q", ErrInvalidConfig, c.MinHistoryMode)
	}
	switch c.RSMode {
	case RSCrossSectional, RSBenchmarkRelative:
	default:
		return fmt.Errorf("%w: unknown rs_mode %q", ErrInvalidConfig, c.RSMode)
	}
	if c.SlopeLookbackOffset <= 0 {
		return fmt.Errorf("%w: slope_lookback_offset must be positive", ErrInvalidConfig)
	}
	if c.RSAbsoluteThreshold < 0 || c.RSAbsoluteThreshold > 100 {
		return fmt.Errorf("%w: rs_absolute_threshold must be within [0, 100]", ErrInvalidConfig)
	}
	if c.RadarRSThreshold < 0 || c.RadarRSThreshold > 100 {
		return fmt.Errorf("%w: radar_rs_threshold must be within [0, 100]", ErrInvalidConfig)
	}
	if c.RangeWindow <= 0 {
		return fmt.Errorf("%w: range_window must be positive", ErrInvalidConfig)
	}
	if c.VolumeExpansion.Enabled {
		if c.VolumeExpansion.Window <= 0 {
			return fmt.Errorf("%w: volume_expansion.window must be positive", ErrInvalidConfig)
		}
		if c.VolumeExpansion.Ratio <= 0 {
			return fmt.Errorf("%w: volume_expansion.ratio must be positive", ErrInvalidConfig)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	return nil
}

// MinHistory is the bar count an instrument needs to be ranked.
func (c Config) MinHistory() int {
	if c.MinHistoryMode == HistoryLenient {
		return c.LookbackWindows[0]
	}
	return c.LookbackWindows[len(c.LookbackWindows)-1]
}

func ascending(name string, windows []int, size int) error {
	if len(windows) != size {
		return fmt.Errorf("%w: %s needs %d values, got %d", ErrInvalidConfig, name, size, len(windows))
	}
	for i, w := range windows {
		if w <= 0 {
			return fmt.Errorf("%w: %s values must be positive", ErrInvalidConfig, name)
		}
		if i > 0 && w <= windows[i-1] {
			return fmt.Errorf("%w: %s must be strictly increasing", ErrInvalidConfig, name)
		}
	}
	return nil
}
