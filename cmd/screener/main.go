package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"TrendScreener/internal/collector"
	"TrendScreener/internal/config"
	"TrendScreener/internal/recorder"
	"TrendScreener/internal/util"
)

var (
	configPath string

	// Global state, set up before every subcommand.
	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "screener",
	Short:             "Relative-strength and trend-template equity screener",
	Long:              `Ranks a universe of equities by weighted relative strength and scores each one against the eight-point trend template.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file path (default $CONFIG_PATH or configs/config.yaml)")
	rootCmd.AddCommand(runCmd, serveCmd, lookupCmd, syncCmd)
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	// The long-running service logs JSON; interactive commands log to stderr
	// so stdout stays clean for tables and exports.
	if cmd.Name() == serveCmd.Name() {
		logger = util.NewLogger(cfg.Log.Level)
	} else {
		logger = util.NewConsoleLogger(cfg.Log.Level)
	}
	logger.Debug().Str("config", path).Str("source", cfg.DataSource.Kind).Msg("configuration loaded")
	return nil
}

func newCollector() (*collector.Collector, error) {
	src, err := collector.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init data source: %w", err)
	}
	logger.Info().Str("source", src.Name()).Msg("data source ready")
	return collector.NewCollector(src, cfg.DataSource.HistoryDays, cfg.DataSource.Workers, logger), nil
}

// newRecorder opens the run history store, falling back to a no-op recorder
// when persistence is disabled or the database cannot be opened.
func newRecorder() recorder.Recorder {
	if !cfg.Database.Enabled {
		return recorder.NewNoopRecorder()
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return rec
}
