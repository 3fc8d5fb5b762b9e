package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TrendScreener/internal/export"
	"TrendScreener/internal/model"
	"TrendScreener/internal/recorder"
)

var criterionNames = [model.NumCriteria]string{
	"Price > MA150 & MA200",
	"MA150 > MA200",
	"MA200 rising",
	"MA50 > MA150 & MA200",
	"Price > MA50",
	"≥30% above 52w low",
	"Within 25% of 52w high",
	"RS trend",
}

// FormatRecordLine renders one ranked record on a single line.
func FormatRecordLine(rank int, r model.ScreenRecord) string {
	var flags string
	if r.ExplosiveSetup {
		flags += " 🚀"
	}
	if r.VolumeChecked && r.VolumeExpansion {
		flags += " 📢"
	}
	return fmt.Sprintf("%d. <b>%s</b> %s | RS %s | %d/8 | Q %s%%%s",
		rank, html.EscapeString(r.Symbol), export.Fixed(r.Close, 2), export.Fixed(r.RSScore, 1),
		r.TotalScore, signed(r.QuarterReturnPct), flags)
}

func signed(v float64) string {
	s := export.Fixed(v, 1)
	if v >= 0 {
		return "+" + s
	}
	return s
}

// FormatScreenReport formats a run summary and its passing records into a Telegram message.
func FormatScreenReport(summary model.RunSummary, passed []model.ScreenRecord, minScore, fetchFailed int, at time.Time) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Trend Screener</b> | %s\n\n", at.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Universe: %d | Ranked: %d | Strong RS: %d\n", summary.Universe, summary.Eligible, summary.Strong))
	if excluded := totalExcluded(summary); excluded > 0 || fetchFailed > 0 {
		b.WriteString(fmt.Sprintf("Excluded: %d | Fetch failed: %d\n", excluded, fetchFailed))
	}
	b.WriteString(fmt.Sprintf("Mode: %s / %s\n\n", summary.RSMode, summary.HistoryMode))

	switch {
	case summary.Eligible == 0:
		b.WriteString("⚠️ No instruments had enough data to rank.\n")
	case len(passed) == 0:
		b.WriteString(fmt.Sprintf("No instruments scored %d/8 or better.\n", minScore))
	default:
		b.WriteString(fmt.Sprintf("📈 <b>Score ≥ %d/8</b> (%d)\n", minScore, len(passed)))
		for i, r := range passed {
			b.WriteString(FormatRecordLine(i+1, r))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// FormatRadar lists high-RS records with a stacked trend.
func FormatRadar(records []model.ScreenRecord, threshold float64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎯 <b>Radar</b> RS ≥ %s with close > MA50 > MA150 > MA200\n\n", export.Fixed(threshold, 0)))
	if len(records) == 0 {
		b.WriteString("Nothing on the radar.\n")
		return b.String()
	}
	for i, r := range records {
		b.WriteString(FormatRecordLine(i+1, r))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatLookup shows one instrument's latest bar and checklist. rec is nil
// when the instrument was not ranked.
func FormatLookup(series model.PriceSeries, rec *model.ScreenRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>%s</b>\n", html.EscapeString(series.Symbol)))
	if last, ok := series.Last(); ok {
		b.WriteString(fmt.Sprintf("Close %s on %s (%d bars)\n", export.Fixed(last.Close, 2), last.Date.Format("2006-01-02"), series.Len()))
	}
	if rec == nil {
		b.WriteString("Not ranked in the last run.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("RS %s | Weighted %s | Q %s%%\n",
		export.Fixed(rec.RSScore, 1), export.Fixed(rec.WeightedScore, 3), signed(rec.QuarterReturnPct)))
	if rec.High52w > 0 {
		b.WriteString(fmt.Sprintf("52w high %s | low %s\n\n", export.Fixed(rec.High52w, 2), export.Fixed(rec.Low52w, 2)))
	} else {
		b.WriteString("52w range n/a (short history)\n\n")
	}
	for i, ok := range rec.Checklist.Criteria {
		mark := "❌"
		if ok {
			mark = "✅"
		}
		b.WriteString(fmt.Sprintf("%s %s\n", mark, criterionNames[i]))
	}
	b.WriteString(fmt.Sprintf("\nTotal: <b>%d/8</b>\n", rec.TotalScore))
	return b.String()
}

// FormatStatus summarises recent runs and the next scheduled one.
func FormatStatus(runs []recorder.RunInfo, next time.Time) string {
	var b strings.Builder
	b.WriteString("🩺 <b>Status</b>\n\n")
	if !next.IsZero() {
		b.WriteString(fmt.Sprintf("Next run: %s\n", next.Format("2006-01-02 15:04")))
	}
	if len(runs) == 0 {
		b.WriteString("No recorded runs.\n")
		return b.String()
	}
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s  ranked %d/%d, passed %d\n",
			r.StartedAt.Format("01-02 15:04"), r.Eligible, r.Universe, r.Passed))
	}
	return b.String()
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "<b>Commands</b>\n" +
		"/screen - run a screen now\n" +
		"/top [N] - top N from the last run\n" +
		"/radar - high-RS stacked trends\n" +
		"/lookup SYMBOL - one instrument's checklist\n" +
		"/status - recent runs\n"
}

func totalExcluded(s model.RunSummary) int {
	n := 0
	for _, c := range s.Excluded {
		n += c
	}
	return n
}
