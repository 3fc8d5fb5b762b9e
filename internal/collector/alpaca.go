package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"TrendScreener/internal/model"
)

// barsClient is the slice of the Alpaca market data client the source uses.
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaSource implements Source using Alpaca's historical bars endpoint.
type AlpacaSource struct {
	client barsClient
	now    func() time.Time
}

// NewAlpacaSource creates a source authenticated with an Alpaca key pair.
func NewAlpacaSource(apiKey, apiSecret, baseURL string) *AlpacaSource {
	return &AlpacaSource{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		now: time.Now,
	}
}

func (f *AlpacaSource) Name() string { return "alpaca" }

func (f *AlpacaSource) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := f.now()
	// trading days to calendar days, with slack for holidays
	start := end.AddDate(0, 0, -(days*7/5 + 10))

	abs, err := f.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.All,
		Start:      start,
		End:        end,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars %s: %w", symbol, err)
	}

	bars := make([]model.Bar, 0, len(abs))
	for _, b := range abs {
		bars = append(bars, model.Bar{
			Date:   b.Timestamp.UTC(),
			Close:  b.Close,
			High:   b.High,
			Low:    b.Low,
			Volume: float64(b.Volume),
		})
	}
	bars = model.NormalizeBars(bars)
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}
