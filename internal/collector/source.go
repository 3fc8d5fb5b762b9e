package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"TrendScreener/internal/model"
)

// Source fetches daily bars for one symbol.
type Source interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error)
	Name() string
}

// SymbolLister is implemented by sources that know their own universe.
type SymbolLister interface {
	ListSymbols(ctx context.Context) ([]string, error)
}

// APIError is a non-200 response from an HTTP source.
type APIError struct {
	Source     string
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error: %s (status: %d, endpoint: %s)", e.Source, e.Message, e.StatusCode, e.Endpoint)
}

const (
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 5
)

// httpBase carries what every HTTP source shares: base URL, client and
// request throttle.
type httpBase struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures an HTTP source.
type Option func(*httpBase)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) Option {
	return func(b *httpBase) { b.baseURL = baseURL }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(b *httpBase) { b.client = client }
}

// WithProxy routes requests through proxyURL. Invalid URLs are ignored.
func WithProxy(proxyURL string) Option {
	return func(b *httpBase) {
		if proxyURL == "" {
			return
		}
		if u, err := url.Parse(proxyURL); err == nil {
			b.client = &http.Client{
				Timeout:   defaultTimeout,
				Transport: &http.Transport{Proxy: http.ProxyURL(u)},
			}
		}
	}
}

// WithRateLimit caps requests per second. Non-positive values disable the cap.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(b *httpBase) {
		if requestsPerSecond <= 0 {
			b.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

func newHTTPBase(baseURL string, opts []Option) httpBase {
	b := httpBase{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateLimit),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// do waits for the limiter and executes req.
func (b *httpBase) do(req *http.Request) (*http.Response, error) {
	if err := b.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return b.client.Do(req)
}
