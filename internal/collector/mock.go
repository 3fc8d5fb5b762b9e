package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"TrendScreener/internal/model"
)

// MockSource returns controllable fixed data for development and testing.
// With Synthetic set, symbols without fixed bars get a deterministic
// generated trend.
type MockSource struct {
	Bars      map[string][]model.Bar
	Errors    map[string]error
	Symbols   []string
	Synthetic bool
	// End is the date of the last synthetic bar; zero means today.
	End time.Time
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		if len(bars) > days {
			bars = bars[len(bars)-days:]
		}
		return bars, nil
	}
	if !m.Synthetic {
		return nil, fmt.Errorf("mock: unknown symbol %s", symbol)
	}
	end := m.End
	if end.IsZero() {
		end = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return generateMockBars(symbol, days, end), nil
}

func (m *MockSource) ListSymbols(_ context.Context) ([]string, error) {
	if m.Symbols != nil {
		return m.Symbols, nil
	}
	var symbols []string
	for sym := range m.Bars {
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

// generateMockBars draws a drifting sine path whose drift and phase depend on
// the symbol, so repeated calls agree.
func generateMockBars(symbol string, count int, end time.Time) []model.Bar {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	seed := h.Sum32()
	drift := (float64(seed%200) - 80) / 100000
	phase := float64(seed % 360)
	base := 20 + float64(seed%180)

	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := base * math.Exp(drift*float64(i)) * (1 + 0.05*math.Sin((float64(i)+phase)/15))
		bars[i] = model.Bar{
			Date:   end.AddDate(0, 0, -(count - 1 - i)),
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000 * (1 + 0.2*math.Cos(float64(i)/7)),
		}
	}
	return bars
}
