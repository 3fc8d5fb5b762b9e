package recorder

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"TrendScreener/internal/model"
)

// SQLiteRecorder persists screening runs to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS screen_runs (
			id            TEXT PRIMARY KEY,
			timestamp     INTEGER NOT NULL,
			duration_ms   INTEGER,
			rs_mode       TEXT,
			history_mode  TEXT,
			universe      INTEGER,
			eligible      INTEGER,
			excluded      INTEGER,
			fetch_failed  INTEGER,
			strong        INTEGER,
			min_score     INTEGER,
			passed        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON screen_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS screen_results (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id           TEXT NOT NULL REFERENCES screen_runs(id),
			rank             INTEGER,
			symbol           TEXT NOT NULL,
			as_of            TEXT,
			close            REAL,
			weighted_score   REAL,
			rs_score         REAL,
			quarter_return   REAL,
			high_52w         REAL,
			low_52w          REAL,
			criteria         TEXT,
			total_score      INTEGER,
			explosive_setup  INTEGER,
			volume_expansion INTEGER,
			passed           INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON screen_results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_symbol ON screen_results(symbol)`,

		`CREATE TABLE IF NOT EXISTS screen_exclusions (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES screen_runs(id),
			reason TEXT NOT NULL,
			count  INTEGER
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// criteriaString encodes the checklist as eight 0/1 characters in label order.
func criteriaString(c model.TrendChecklist) string {
	var b strings.Builder
	for _, ok := range c.Criteria {
		if ok {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *SQLiteRecorder) RecordRun(snap *RunSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	s := snap.Summary
	excluded := 0
	for _, n := range s.Excluded {
		excluded += n
	}
	_, err = tx.Exec(`INSERT INTO screen_runs
		(id, timestamp, duration_ms, rs_mode, history_mode, universe, eligible, excluded,
		 fetch_failed, strong, min_score, passed)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		snap.ID, snap.StartedAt.Unix(), snap.Duration.Milliseconds(), s.RSMode, s.HistoryMode,
		s.Universe, s.Eligible, excluded, snap.FetchFailed, s.Strong, snap.MinScore, len(snap.Passed),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	passed := make(map[string]bool, len(snap.Passed))
	for _, rec := range snap.Passed {
		passed[rec.Symbol] = true
	}
	stmt, err := tx.Prepare(`INSERT INTO screen_results
		(run_id, rank, symbol, as_of, close, weighted_score, rs_score, quarter_return,
		 high_52w, low_52w, criteria, total_score, explosive_setup, volume_expansion, passed)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare results: %w", err)
	}
	defer stmt.Close()
	for i, rec := range snap.Records {
		if _, err := stmt.Exec(
			snap.ID, i+1, rec.Symbol, rec.AsOf.Format("2006-01-02"), rec.Close,
			rec.WeightedScore, rec.RSScore, rec.QuarterReturnPct, rec.High52w, rec.Low52w,
			criteriaString(rec.Checklist), rec.TotalScore,
			boolInt(rec.ExplosiveSetup), boolInt(rec.VolumeExpansion), boolInt(passed[rec.Symbol]),
		); err != nil {
			return fmt.Errorf("insert result %s: %w", rec.Symbol, err)
		}
	}

	for reason, n := range s.Excluded {
		if _, err := tx.Exec(`INSERT INTO screen_exclusions (run_id, reason, count) VALUES (?,?,?)`,
			snap.ID, string(reason), n); err != nil {
			return fmt.Errorf("insert exclusions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Debug().Str("run_id", snap.ID).Int("records", len(snap.Records)).Msg("run recorded")
	return nil
}

// LatestRuns returns the most recent runs, newest first.
func (r *SQLiteRecorder) LatestRuns(limit int) ([]RunInfo, error) {
	rows, err := r.db.Query(`SELECT id, timestamp, rs_mode, history_mode, universe, eligible, excluded, passed
		FROM screen_runs ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var (
			info RunInfo
			ts   int64
		)
		if err := rows.Scan(&info.ID, &ts, &info.RSMode, &info.HistoryMode,
			&info.Universe, &info.Eligible, &info.Excluded, &info.Passed); err != nil {
			return nil, err
		}
		info.StartedAt = time.Unix(ts, 0)
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
