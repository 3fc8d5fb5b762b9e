package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"TrendScreener/internal/model"
)

// RESTSource implements Source against a bars REST API authenticated with a
// bearer key:
//
//	GET /api/v1/bars/daily?symbol=X&limit=N -> [{timestamp, close, high, low, volume}]
//	GET /api/v1/symbols                     -> ["X", ...]
type RESTSource struct {
	httpBase
	APIKey string
}

// NewRESTSource creates a new REST source.
func NewRESTSource(baseURL, apiKey string, opts ...Option) *RESTSource {
	return &RESTSource{httpBase: newHTTPBase(baseURL, opts), APIKey: apiKey}
}

func (f *RESTSource) Name() string { return "rest" }

// restBar is the expected JSON shape of one bar.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *RESTSource) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(days))

	var rbs []restBar
	if err := f.get(ctx, "/api/v1/bars/daily", params, &rbs); err != nil {
		return nil, fmt.Errorf("fetch bars %s: %w", symbol, err)
	}
	bars := make([]model.Bar, len(rbs))
	for i, rb := range rbs {
		bars[i] = model.Bar{
			Date:   time.Unix(rb.Timestamp, 0).UTC(),
			Close:  rb.Close,
			High:   rb.High,
			Low:    rb.Low,
			Volume: rb.Volume,
		}
	}
	return model.NormalizeBars(bars), nil
}

func (f *RESTSource) ListSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	if err := f.get(ctx, "/api/v1/symbols", nil, &symbols); err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	return symbols, nil
}

func (f *RESTSource) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	endpoint := f.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Source: f.Name(), StatusCode: resp.StatusCode, Message: string(body), Endpoint: path}
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
