package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"TrendScreener/internal/export"
	"TrendScreener/internal/model"
	"TrendScreener/internal/scheduler"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [symbol]",
	Short: "Screen the universe and show one instrument's checklist",
	Long:  `Runs a full screen, since RS percentiles are relative to the whole universe, then prints the latest bar and trend template result for one instrument.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

func runLookup(_ *cobra.Command, args []string) error {
	symbol := strings.ToUpper(args[0])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	col, err := newCollector()
	if err != nil {
		return err
	}
	// Lookups are not recorded.
	sched := scheduler.NewScheduler(ctx, cfg, col, nil, nil, logger)
	_, res, err := sched.RunOnce(ctx)
	if err != nil {
		return err
	}

	series, ok := res.Lookup(symbol)
	if !ok {
		return fmt.Errorf("%s is not in the configured universe or could not be fetched", symbol)
	}
	if last, ok := series.Last(); ok {
		fmt.Printf("%s  close %s on %s  (%d bars)\n", symbol, export.Fixed(last.Close, 2), last.Date.Format("2006-01-02"), series.Len())
	}

	var rec *model.ScreenRecord
	for i := range res.Records {
		if res.Records[i].Symbol == symbol {
			rec = &res.Records[i]
			break
		}
	}
	if rec == nil {
		for _, ex := range res.Exclusions {
			if ex.Symbol == symbol {
				fmt.Printf("excluded (%s): %v\n", ex.Reason, ex.Err)
			}
		}
		return nil
	}

	fmt.Printf("RS %s  weighted %s  quarter %s%%\n",
		export.Fixed(rec.RSScore, 1), export.Fixed(rec.WeightedScore, 4), export.Fixed(rec.QuarterReturnPct, 2))
	fmt.Printf("52w high %s  low %s\n", export.Fixed(rec.High52w, 2), export.Fixed(rec.Low52w, 2))
	ma := rec.MovingAverages
	fmt.Printf("MA50 %s  MA150 %s  MA200 %s  MA200 prev %s\n\n",
		maCell(ma.Short, ma.HasShort), maCell(ma.Mid, ma.HasMid), maCell(ma.Long, ma.HasLong), maCell(ma.LongPrev, ma.HasLongPrev))
	for i, label := range model.CriterionLabels {
		mark := " "
		if rec.Checklist.Criteria[i] {
			mark = "x"
		}
		fmt.Printf("[%s] %s\n", mark, label)
	}
	fmt.Printf("\ntotal %d/8  explosive setup %t\n", rec.TotalScore, rec.ExplosiveSetup)
	return nil
}

func maCell(v float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return export.Fixed(v, 2)
}
