package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"TrendScreener/internal/collector"
	"TrendScreener/internal/config"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy daily bars from the configured source into a SQLite cache",
	Long:  `Fetches the universe and benchmark from the configured data source and upserts the bars into a SQLite price database that the sqlite source kind can screen offline.`,
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

var syncDBPath string

func init() {
	syncCmd.Flags().StringVar(&syncDBPath, "db", "data/prices.db", "SQLite price database to write")
}

func runSync(_ *cobra.Command, _ []string) error {
	if cfg.DataSource.Kind == config.SourceSQLite {
		return fmt.Errorf("data_source.kind is already %s; nothing to sync from", config.SourceSQLite)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	col, err := newCollector()
	if err != nil {
		return err
	}
	symbols, err := collector.ResolveSymbols(ctx, col.Source, cfg.Universe.Symbols, cfg.Universe.File, cfg.Universe.FromSource)
	if err != nil {
		return fmt.Errorf("resolve symbols: %w", err)
	}
	universe, err := col.CollectUniverse(ctx, symbols, cfg.DataSource.Benchmark)
	if err != nil {
		return err
	}

	dst, err := collector.NewSQLSource(syncDBPath, cfg.DataSource.Benchmark)
	if err != nil {
		return err
	}
	defer dst.Close()

	stored := 0
	for _, s := range universe.Series {
		if err := dst.StoreBars(ctx, s.Symbol, s.Bars); err != nil {
			return err
		}
		stored++
	}
	if universe.Benchmark != nil {
		if err := dst.StoreBars(ctx, universe.Benchmark.Symbol, universe.Benchmark.Bars); err != nil {
			return err
		}
	}

	logger.Info().
		Str("db", syncDBPath).
		Int("symbols", stored).
		Int("failed", len(universe.Failed)).
		Bool("benchmark", universe.Benchmark != nil).
		Msg("sync complete")
	return nil
}
