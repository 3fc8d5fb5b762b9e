package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendScreener/internal/collector"
	"TrendScreener/internal/config"
	"TrendScreener/internal/model"
	"TrendScreener/internal/recorder"
	"TrendScreener/internal/strategy"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func series(closes func(i int) float64) []model.Bar {
	bars := make([]model.Bar, 300)
	for i := range bars {
		bars[i] = model.Bar{Date: day0.AddDate(0, 0, i), Close: closes(i), Volume: 1000}
	}
	return bars
}

func newTestScheduler(t *testing.T, rec recorder.Recorder) (*Scheduler, *fakeNotifier) {
	t.Helper()
	src := &collector.MockSource{
		Bars: map[string][]model.Bar{
			"AAA": series(func(i int) float64 {
				if i < 240 {
					return 100
				}
				return 100 + 50*float64(i-240)/59
			}),
			"BBB": series(func(int) float64 { return 100 }),
			"CCC": series(func(int) float64 { return 100 }),
		},
		Errors: map[string]error{"DDD": errors.New("boom")},
	}

	cfg := &config.Config{Screening: strategy.DefaultConfig()}
	cfg.Universe.Symbols = []string{"AAA", "BBB", "CCC", "DDD"}
	cfg.DataSource.HistoryDays = 300
	cfg.Report.MinScore = 7
	cfg.Report.TopN = 20

	col := collector.NewCollector(src, cfg.DataSource.HistoryDays, 2, zerolog.Nop())
	n := &fakeNotifier{}
	return NewScheduler(context.Background(), cfg, col, rec, n, zerolog.Nop()), n
}

func TestRunOnce(t *testing.T) {
	s, _ := newTestScheduler(t, nil)

	snap, res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.ID, 36)
	assert.Equal(t, 1, snap.FetchFailed)
	assert.Equal(t, 3, snap.Summary.Universe)
	assert.Equal(t, 3, snap.Summary.Eligible)
	require.Len(t, snap.Passed, 1)
	assert.Equal(t, "AAA", snap.Passed[0].Symbol)
	assert.Len(t, snap.Records, 3)
	assert.Same(t, res, s.Last())
}

func TestRunOnce_InProgress(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	s.running.Lock()
	defer s.running.Unlock()

	_, _, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRunOnce_ScreenFailure(t *testing.T) {
	s, n := newTestScheduler(t, nil)
	s.cfg.Screening.RSMode = strategy.RSBenchmarkRelative

	_, _, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, strategy.ErrMissingBenchmark)
	assert.Nil(t, s.Last())

	s.RunNow()
	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Screening failed")
}

func TestHandleCommand(t *testing.T) {
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), zerolog.Nop())
	require.NoError(t, err)
	defer rec.Close()
	s, n := newTestScheduler(t, rec)

	assert.Contains(t, s.HandleCommand("/top"), "No screening run yet")
	assert.Contains(t, s.HandleCommand("/status"), "No recorded runs.")

	assert.Contains(t, s.HandleCommand("/screen"), "Screening started")
	require.Eventually(t, func() bool { return len(n.messages()) == 1 }, 5*time.Second, 10*time.Millisecond)
	msgs := n.messages()
	assert.Contains(t, msgs[0], "1. <b>AAA</b>")
	assert.Contains(t, msgs[0], "Fetch failed: 1")

	assert.Contains(t, s.HandleCommand("/top 1"), "<b>AAA</b>")
	assert.Equal(t, "Usage: /top [N]", s.HandleCommand("/top x"))
	assert.Contains(t, s.HandleCommand("/radar@trend_bot"), "1. <b>AAA</b>")

	lookup := s.HandleCommand("/lookup aaa")
	assert.Contains(t, lookup, "🔎 <b>AAA</b>")
	assert.Contains(t, lookup, "Total: <b>8/8</b>")
	assert.Contains(t, s.HandleCommand("/lookup ZZZ"), "ZZZ was not in the last run.")
	assert.Equal(t, "Usage: /lookup SYMBOL", s.HandleCommand("/lookup"))

	assert.Contains(t, s.HandleCommand("/status"), "ranked 3/3, passed 1")
	assert.Contains(t, s.HandleCommand("hello"), "/lookup SYMBOL")
}

func TestHandleCommand_ScreenRunsInBackground(t *testing.T) {
	s, n := newTestScheduler(t, nil)

	s.running.Lock()
	assert.Contains(t, s.HandleCommand("/screen"), "already running")
	s.running.Unlock()
	assert.Empty(t, n.messages())

	reply := s.HandleCommand("/screen")
	assert.Contains(t, reply, "Screening started")
	assert.Contains(t, s.HandleCommand("/help"), "/lookup SYMBOL", "commands are answered while the screen runs")

	require.Eventually(t, func() bool { return len(n.messages()) == 1 && s.Last() != nil }, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, n.messages()[0], "<b>AAA</b>")
}

func TestRegister(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	assert.Error(t, s.Register("not a cron"))
	require.NoError(t, s.Register("0 30 18 * * 1-5"))

	s.Start()
	defer s.Stop()
	next := s.Next()
	require.False(t, next.IsZero())
	assert.Equal(t, 18, next.Hour())
	assert.Equal(t, 30, next.Minute())
}
