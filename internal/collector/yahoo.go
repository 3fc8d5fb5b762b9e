package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"TrendScreener/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource implements Source using the Yahoo Finance chart API.
type YahooSource struct {
	httpBase
	// Aliases maps index names used in config to Yahoo tickers.
	Aliases map[string]string
}

// NewYahooSource creates a new Yahoo Finance source.
func NewYahooSource(opts ...Option) *YahooSource {
	return &YahooSource{
		httpBase: newHTTPBase(yahooBaseURL, opts),
		Aliases: map[string]string{
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
			"SPX500": "^GSPC",
			"NDX":    "^NDX",
			"DJI":    "^DJI",
		},
	}
}

func (f *YahooSource) Name() string { return "yahoo" }

func (f *YahooSource) ticker(symbol string) string {
	if alias, ok := f.Aliases[symbol]; ok {
		return alias
	}
	return symbol
}

// chartResponse is the subset of /v8/finance/chart the source reads. Quote
// arrays hold null on non-trading bars.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []chartQuote `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartQuote struct {
	Close  []*float64 `json:"close"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Volume []*float64 `json:"volume"`
}

func value(vals []*float64, i int) float64 {
	if i < len(vals) && vals[i] != nil {
		return *vals[i]
	}
	return 0
}

// yahooRange picks the smallest chart range covering `days` trading days.
func yahooRange(days int) string {
	switch {
	case days <= 22:
		return "1mo"
	case days <= 125:
		return "6mo"
	case days <= 250:
		return "1y"
	case days <= 500:
		return "2y"
	case days <= 1250:
		return "5y"
	default:
		return "10y"
	}
}

func (f *YahooSource) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	endpoint := "/v8/finance/chart/" + url.PathEscape(f.ticker(symbol))
	q := url.Values{"interval": {"1d"}, "range": {yahooRange(days)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &APIError{Source: f.Name(), StatusCode: resp.StatusCode, Message: string(msg), Endpoint: endpoint}
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("yahoo %s: decode: %w", symbol, err)
	}
	if e := chart.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: empty chart", symbol)
	}

	res := chart.Chart.Result[0]
	q0 := res.Indicators.Quote[0]
	bars := make([]model.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		c := value(q0.Close, i)
		if c == 0 {
			continue
		}
		bars = append(bars, model.Bar{
			Date:   time.Unix(ts, 0).UTC(),
			Close:  c,
			High:   value(q0.High, i),
			Low:    value(q0.Low, i),
			Volume: value(q0.Volume, i),
		})
	}

	bars = model.NormalizeBars(bars)
	if n := len(bars); n > days {
		bars = bars[n-days:]
	}
	return bars, nil
}
