package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"TrendScreener/internal/metrics"
	"TrendScreener/internal/notifier"
	"TrendScreener/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled screens and answer Telegram commands",
	Long:  `Starts the cron scheduler, Telegram command polling when credentials are configured, and the Prometheus metrics endpoint when metrics.addr is set.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	logger.Info().Msg("TrendScreener starting")

	col, err := newCollector()
	if err != nil {
		return err
	}
	rec := newRecorder()
	defer rec.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		tn *notifier.TelegramNotifier
		n  notifier.Notifier
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		n = tn
	} else {
		logger.Warn().Msg("telegram not configured, reports are only logged and recorded")
	}

	sched := scheduler.NewScheduler(ctx, cfg, col, rec, n, logger)
	if err := sched.Register(cfg.Schedule.ScreenCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()
	logger.Info().Str("cron", cfg.Schedule.ScreenCron).Time("next", sched.Next()).Msg("screen scheduled")

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info().Msg("telegram polling started")
	}

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr)
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint listening")
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info().Msg("RUN_ON_START enabled, executing screen now")
		go sched.RunNow()
	}

	logger.Info().Msg("TrendScreener is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutdown signal received, stopping...")
	cancel()
	return nil
}
