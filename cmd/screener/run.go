package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"TrendScreener/internal/export"
	"TrendScreener/internal/model"
	"TrendScreener/internal/notifier"
	"TrendScreener/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one screen and print the ranked table",
	Long:  `Collects the configured universe, screens it once and prints the instruments that meet the report settings. Optionally writes every ranked record to CSV or JSON.`,
	Args:  cobra.NoArgs,
	RunE:  runOnce,
}

var (
	runCSVPath  string
	runJSONPath string
	runMinScore int
	runTopN     int
	runNotify   bool
)

func init() {
	runCmd.Flags().StringVar(&runCSVPath, "csv", "", "Write all ranked records to this CSV file")
	runCmd.Flags().StringVar(&runJSONPath, "json", "", "Write the summary and all ranked records to this JSON file")
	runCmd.Flags().IntVar(&runMinScore, "min-score", 0, "Minimum trend template score to print (overrides report.min_score)")
	runCmd.Flags().IntVar(&runTopN, "top", 0, "Print at most N instruments (overrides report.top_n)")
	runCmd.Flags().BoolVar(&runNotify, "notify", false, "Also send the report to Telegram")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("min-score") {
		if runMinScore < 0 || runMinScore > 8 {
			return fmt.Errorf("--min-score must be within [0, 8]")
		}
		cfg.Report.MinScore = runMinScore
	}
	if cmd.Flags().Changed("top") {
		cfg.Report.TopN = runTopN
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	col, err := newCollector()
	if err != nil {
		return err
	}
	rec := newRecorder()
	defer rec.Close()

	var n notifier.Notifier
	if runNotify && cfg.TelegramEnabled() {
		n = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
	}

	sched := scheduler.NewScheduler(ctx, cfg, col, rec, n, logger)
	snap, res, err := sched.RunOnce(ctx)
	if err != nil {
		return err
	}

	printTable(os.Stdout, snap.Passed)
	fmt.Printf("\n%d of %d instruments ranked, %d shown (min score %d/8)\n",
		snap.Summary.Eligible, snap.Summary.Universe, len(snap.Passed), snap.MinScore)

	if runCSVPath != "" {
		if err := writeFile(runCSVPath, func(w io.Writer) error { return export.WriteCSV(w, res.Records) }); err != nil {
			return err
		}
		logger.Info().Str("path", runCSVPath).Int("records", len(res.Records)).Msg("csv written")
	}
	if runJSONPath != "" {
		if err := writeFile(runJSONPath, func(w io.Writer) error {
			return export.WriteJSON(w, res.Summary, res.Records, snap.StartedAt)
		}); err != nil {
			return err
		}
		logger.Info().Str("path", runJSONPath).Int("records", len(res.Records)).Msg("json written")
	}

	if n != nil {
		report := notifier.FormatScreenReport(snap.Summary, snap.Passed, snap.MinScore, snap.FetchFailed, snap.StartedAt)
		if err := n.SendWithRetry(ctx, report, 3); err != nil {
			return fmt.Errorf("send report: %w", err)
		}
	}
	return nil
}

func printTable(out io.Writer, records []model.ScreenRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "#\tSYMBOL\tCLOSE\tRS\tWEIGHTED\tQTR %\tSCORE\tSETUP\t")
	for i, r := range records {
		setup := ""
		if r.ExplosiveSetup {
			setup = "stacked"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d/8\t%s\t\n",
			i+1, r.Symbol, export.Fixed(r.Close, 2), export.Fixed(r.RSScore, 1),
			export.Fixed(r.WeightedScore, 3), export.Fixed(r.QuarterReturnPct, 1), r.TotalScore, setup)
	}
	w.Flush()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
