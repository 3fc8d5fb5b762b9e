package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"TrendScreener/internal/collector"
	"TrendScreener/internal/config"
	"TrendScreener/internal/metrics"
	"TrendScreener/internal/model"
	"TrendScreener/internal/notifier"
	"TrendScreener/internal/recorder"
	"TrendScreener/internal/strategy"
)

// ErrRunInProgress is returned when a screen is requested while another is running.
var ErrRunInProgress = errors.New("screening run already in progress")

// Scheduler runs the screening pipeline on a cron schedule and answers bot
// commands from the most recent result.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Ctx       context.Context

	cfg   *config.Config
	log   zerolog.Logger
	entry cron.EntryID

	running sync.Mutex
	mu      sync.RWMutex
	last    *strategy.Result
}

// NewScheduler creates a new Scheduler. n may be nil when no chat is configured.
func NewScheduler(ctx context.Context, cfg *config.Config, col *collector.Collector, rec recorder.Recorder, n notifier.Notifier, log zerolog.Logger) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Notifier:  n,
		Recorder:  rec,
		Ctx:       ctx,
		cfg:       cfg,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the screening task under the given six-field cron spec.
func (s *Scheduler) Register(screenCron string) error {
	id, err := s.Cron.AddFunc(screenCron, s.screenTask)
	if err != nil {
		return fmt.Errorf("register screen task: %w", err)
	}
	s.entry = id
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes the screening task immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.screenTask()
}

// Next returns the next scheduled run, or the zero time when none is registered.
func (s *Scheduler) Next() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.Cron.Entry(s.entry).Next
}

// Last returns the most recent screening result, or nil.
func (s *Scheduler) Last() *strategy.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// RunOnce collects the universe, screens it and records the run. The passed
// records are filtered by the report settings.
func (s *Scheduler) RunOnce(ctx context.Context) (*recorder.RunSnapshot, *strategy.Result, error) {
	if !s.running.TryLock() {
		return nil, nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	snap := recorder.NewRunSnapshot(time.Now())
	log := s.log.With().Str("run_id", snap.ID).Logger()

	symbols, err := collector.ResolveSymbols(ctx, s.Collector.Source,
		s.cfg.Universe.Symbols, s.cfg.Universe.File, s.cfg.Universe.FromSource)
	if err != nil {
		metrics.ObserveFailure()
		return nil, nil, fmt.Errorf("resolve symbols: %w", err)
	}

	universe, err := s.Collector.CollectUniverse(ctx, symbols, s.cfg.DataSource.Benchmark)
	if err != nil {
		metrics.ObserveFailure()
		return nil, nil, err
	}

	res, err := strategy.Screen(universe, s.cfg.Screening)
	if err != nil {
		metrics.ObserveFailure()
		return nil, nil, fmt.Errorf("screen: %w", err)
	}

	snap.Duration = time.Since(snap.StartedAt)
	snap.Summary = res.Summary
	snap.FetchFailed = len(universe.Failed)
	snap.MinScore = s.cfg.Report.MinScore
	snap.Records = res.Records
	snap.Passed = res.FilterWith(s.reportFilter(s.cfg.Report.TopN))

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	metrics.ObserveRun(res.Summary, len(snap.Passed), snap.Duration)
	if err := s.Recorder.RecordRun(snap); err != nil {
		log.Error().Err(err).Msg("record run")
	}

	log.Info().
		Int("universe", res.Summary.Universe).
		Int("eligible", res.Summary.Eligible).
		Int("strong", res.Summary.Strong).
		Int("passed", len(snap.Passed)).
		Dur("elapsed", snap.Duration).
		Msg("screen complete")
	return snap, res, nil
}

func (s *Scheduler) reportFilter(topN int) strategy.FilterOptions {
	return strategy.FilterOptions{
		MinTotalScore:          s.cfg.Report.MinScore,
		TopN:                   topN,
		RequireVolumeExpansion: s.cfg.Report.RequireVolumeExpansion,
	}
}

func (s *Scheduler) screenTask() {
	s.log.Info().Msg("running screen task")
	snap, _, err := s.RunOnce(s.Ctx)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.log.Warn().Msg("skipping screen, previous run still active")
			return
		}
		s.log.Error().Err(err).Msg("screen task failed")
		s.trySend(fmt.Sprintf("❌ Screening failed: %v", err))
		return
	}
	s.trySend(notifier.FormatScreenReport(snap.Summary, snap.Passed, snap.MinScore, snap.FetchFailed, snap.StartedAt))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	// Telegram appends @botname to commands in group chats.
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch name {
	case "/screen":
		if !s.running.TryLock() {
			return "⏳ A screen is already running."
		}
		s.running.Unlock()
		go s.screenTask()
		return "⏳ Screening started, the report follows when it finishes."
	case "/top":
		res := s.Last()
		if res == nil {
			return noRunYet
		}
		topN := s.cfg.Report.TopN
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return "Usage: /top [N]"
			}
			topN = n
		}
		return notifier.FormatScreenReport(res.Summary, res.FilterWith(s.reportFilter(topN)), s.cfg.Report.MinScore, 0, time.Now())
	case "/radar":
		res := s.Last()
		if res == nil {
			return noRunYet
		}
		threshold := s.cfg.Screening.RadarRSThreshold
		return notifier.FormatRadar(res.Radar(threshold), threshold)
	case "/lookup":
		if len(args) == 0 {
			return "Usage: /lookup SYMBOL"
		}
		res := s.Last()
		if res == nil {
			return noRunYet
		}
		symbol := strings.ToUpper(args[0])
		series, ok := res.Lookup(symbol)
		if !ok {
			return fmt.Sprintf("%s was not in the last run.", symbol)
		}
		return notifier.FormatLookup(series, findRecord(res.Records, symbol))
	case "/status":
		runs, err := s.Recorder.LatestRuns(5)
		if err != nil {
			s.log.Error().Err(err).Msg("load latest runs")
		}
		return notifier.FormatStatus(runs, s.Next())
	default:
		return notifier.FormatHelp()
	}
}

const noRunYet = "No screening run yet. Send /screen first."

func findRecord(records []model.ScreenRecord, symbol string) *model.ScreenRecord {
	for i := range records {
		if records[i].Symbol == symbol {
			return &records[i]
		}
	}
	return nil
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
