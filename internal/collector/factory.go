package collector

import (
	"fmt"

	"TrendScreener/internal/config"
)

// NewFromConfig builds the Source named by data_source.kind.
func NewFromConfig(cfg *config.Config) (Source, error) {
	ds := cfg.DataSource
	httpOpts := []Option{WithProxy(cfg.Proxy), WithRateLimit(ds.RateLimit)}

	switch ds.Kind {
	case config.SourceYahoo:
		if ds.BaseURL != "" {
			httpOpts = append(httpOpts, WithBaseURL(ds.BaseURL))
		}
		return NewYahooSource(httpOpts...), nil
	case config.SourceREST:
		return NewRESTSource(ds.BaseURL, ds.APIKey, httpOpts...), nil
	case config.SourceAlpaca:
		return NewAlpacaSource(ds.APIKey, ds.APISecret, ds.BaseURL), nil
	case config.SourceCSV:
		return NewCSVSource(ds.Dir), nil
	case config.SourceSQLite:
		return NewSQLSource(ds.SQLitePath, ds.Benchmark)
	case config.SourceMock:
		return &MockSource{Synthetic: true, Symbols: cfg.Universe.Symbols}, nil
	default:
		return nil, fmt.Errorf("unsupported data source kind %q", ds.Kind)
	}
}
