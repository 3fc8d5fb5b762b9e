package calculator

import (
	"fmt"

	"TrendScreener/internal/model"
)

type dayKey struct {
	y int
	m int
	d int
}

func keyOf(b model.Bar) dayKey {
	y, m, d := b.Date.Date()
	return dayKey{y, int(m), d}
}

// AlignCloses joins an instrument and a benchmark on calendar date and
// returns the paired closes in the instrument's order. Dates missing from
// either side are dropped.
func AlignCloses(inst, bench []model.Bar) (instCloses, benchCloses []float64) {
	byDay := make(map[dayKey]float64, len(bench))
	for _, b := range bench {
		byDay[keyOf(b)] = b.Close
	}
	instCloses = make([]float64, 0, len(inst))
	benchCloses = make([]float64, 0, len(inst))
	for _, b := range inst {
		bc, ok := byDay[keyOf(b)]
		if !ok {
			continue
		}
		instCloses = append(instCloses, b.Close)
		benchCloses = append(benchCloses, bc)
	}
	return instCloses, benchCloses
}

// RelativeReturn returns (instrument ratio / benchmark ratio) x 100 over
// `window` aligned observations.
func RelativeReturn(instCloses, benchCloses []float64, window int) (float64, error) {
	ir, err := ReturnRatio(instCloses, window)
	if err != nil {
		return 0, fmt.Errorf("instrument: %w", err)
	}
	br, err := ReturnRatio(benchCloses, window)
	if err != nil {
		return 0, fmt.Errorf("benchmark: %w", err)
	}
	return ir / br * 100, nil
}

// RSLineAt returns close/benchmark x 100 `back` observations before the last
// aligned pair.
func RSLineAt(instCloses, benchCloses []float64, back int) (float64, error) {
	n := len(instCloses)
	if len(benchCloses) != n {
		return 0, fmt.Errorf("rs line: unaligned series %d vs %d", n, len(benchCloses))
	}
	i := n - 1 - back
	if back < 0 || i < 0 {
		return 0, fmt.Errorf("rs line needs %d pairs, have %d: %w", back+1, n, ErrNotEnoughData)
	}
	ic, bc := instCloses[i], benchCloses[i]
	if !ValidPrice(ic) || !ValidPrice(bc) {
		return 0, fmt.Errorf("rs line %v/%v: %w", ic, bc, ErrInvalidPrice)
	}
	return ic / bc * 100, nil
}
