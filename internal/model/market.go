package model

import (
	"sort"
	"time"
)

// Bar is one daily observation. High, Low and Volume are optional and left
// at zero when the source does not provide them.
type Bar struct {
	Date   time.Time
	Close  float64
	High   float64
	Low    float64
	Volume float64
}

// PriceSeries holds one instrument's bars in ascending date order.
type PriceSeries struct {
	Symbol string
	Bars   []Bar
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Closes extracts the closing prices.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Volumes extracts the volumes.
func (s PriceSeries) Volumes() []float64 {
	vols := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		vols[i] = b.Volume
	}
	return vols
}

// Last returns the most recent bar.
func (s PriceSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Ordered reports whether dates are strictly increasing.
func (s PriceSeries) Ordered() bool {
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Date.After(s.Bars[i-1].Date) {
			return false
		}
	}
	return true
}

// NormalizeBars sorts bars by date and drops duplicate dates, keeping the
// last occurrence. The input slice is not modified.
func NormalizeBars(bars []Bar) []Bar {
	out := make([]Bar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(b.Date) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// Universe is what the ingestion side hands to a scoring run.
type Universe struct {
	Series    []PriceSeries
	Benchmark *PriceSeries
	// Failed maps symbols that could not be fetched to the fetch error.
	Failed    map[string]error
	FetchedAt time.Time
}
