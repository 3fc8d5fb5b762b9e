package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"TrendScreener/internal/metrics"
	"TrendScreener/internal/model"
	"TrendScreener/internal/util"
)

// Collector fetches a universe of series from a Source.
type Collector struct {
	Source      Source
	HistoryDays int
	Workers     int
	log         zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(source Source, historyDays, workers int, log zerolog.Logger) *Collector {
	return &Collector{
		Source:      source,
		HistoryDays: historyDays,
		Workers:     workers,
		log:         log.With().Str("component", "collector").Str("source", source.Name()).Logger(),
	}
}

// CollectUniverse fetches every symbol and the optional benchmark in
// parallel. Per-symbol failures are logged and reported in Universe.Failed;
// only cancellation of ctx fails the call.
func (c *Collector) CollectUniverse(ctx context.Context, symbols []string, benchmark string) (model.Universe, error) {
	symbols = dedupe(symbols)
	jobs := symbols
	if benchmark != "" {
		jobs = append(append([]string(nil), symbols...), benchmark)
	}

	type fetched struct {
		bars []model.Bar
		err  error
	}
	out := make([]fetched, len(jobs))
	util.ForEach(len(jobs), c.Workers, func(i int) {
		if ctx.Err() != nil {
			out[i].err = ctx.Err()
			return
		}
		bars, err := c.Source.FetchDailyBars(ctx, jobs[i], c.HistoryDays)
		if err == nil && len(bars) == 0 {
			err = errors.New("no bars returned")
		}
		out[i] = fetched{bars: model.NormalizeBars(bars), err: err}
	})
	if err := ctx.Err(); err != nil {
		return model.Universe{}, fmt.Errorf("collect universe: %w", err)
	}

	u := model.Universe{Failed: map[string]error{}, FetchedAt: time.Now()}
	for i, sym := range jobs {
		f := out[i]
		if f.err != nil {
			c.log.Warn().Err(f.err).Str("symbol", sym).Msg("fetch failed")
			metrics.FetchErrorsTotal.WithLabelValues(c.Source.Name()).Inc()
			u.Failed[sym] = f.err
			continue
		}
		series := model.PriceSeries{Symbol: sym, Bars: f.bars}
		if benchmark != "" && i == len(jobs)-1 {
			u.Benchmark = &series
			continue
		}
		u.Series = append(u.Series, series)
	}

	c.log.Info().
		Int("requested", len(symbols)).
		Int("fetched", len(u.Series)).
		Int("failed", len(u.Failed)).
		Bool("benchmark", u.Benchmark != nil).
		Msg("universe collected")
	return u, nil
}

// ResolveSymbols builds the universe symbol list from an explicit list, a
// symbol file and, when fromSource is set, the source's own listing.
func ResolveSymbols(ctx context.Context, src Source, symbols []string, file string, fromSource bool) ([]string, error) {
	all := append([]string(nil), symbols...)
	if file != "" {
		fromFile, err := LoadSymbolsCSV(file)
		if err != nil {
			return nil, err
		}
		all = append(all, fromFile...)
	}
	if fromSource {
		lister, ok := src.(SymbolLister)
		if !ok {
			return nil, fmt.Errorf("source %s cannot list symbols", src.Name())
		}
		listed, err := lister.ListSymbols(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, listed...)
	}
	all = dedupe(all)
	sort.Strings(all)
	return all, nil
}

func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
