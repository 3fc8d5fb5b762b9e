package collector

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"TrendScreener/internal/model"
)

const sqlDateLayout = "2006-01-02"

// SQLSource implements Source over a SQLite price database:
//
//	daily_price(stock_id, trade_date, close, high, low, volume)
//	index_price(trade_date, close)
//
// Requests for IndexSymbol are answered from index_price.
type SQLSource struct {
	db          *sql.DB
	mu          sync.Mutex
	IndexSymbol string
}

// NewSQLSource opens (or creates) the database and ensures the price tables exist.
func NewSQLSource(dbPath, indexSymbol string) (*SQLSource, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLSource{db: db, IndexSymbol: indexSymbol}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLSource) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_price (
			stock_id   TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			close      REAL NOT NULL,
			high       REAL,
			low        REAL,
			volume     REAL,
			PRIMARY KEY (stock_id, trade_date)
		)`,
		`CREATE TABLE IF NOT EXISTS index_price (
			trade_date TEXT PRIMARY KEY,
			close      REAL NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLSource) Name() string { return "sqlite" }

func (s *SQLSource) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if s.IndexSymbol != "" && symbol == s.IndexSymbol {
		rows, err = s.db.QueryContext(ctx, `SELECT trade_date, close, NULL, NULL, NULL FROM index_price
			ORDER BY trade_date DESC LIMIT ?`, days)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT trade_date, close, high, low, volume FROM daily_price
			WHERE stock_id = ? ORDER BY trade_date DESC LIMIT ?`, symbol, days)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var (
			date           string
			closePx        float64
			high, low, vol sql.NullFloat64
		)
		if err := rows.Scan(&date, &closePx, &high, &low, &vol); err != nil {
			return nil, fmt.Errorf("scan %s: %w", symbol, err)
		}
		t, err := time.Parse(sqlDateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("%s: trade_date %q: %w", symbol, date, err)
		}
		bars = append(bars, model.Bar{Date: t, Close: closePx, High: high.Float64, Low: low.Float64, Volume: vol.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no rows for %s", symbol)
	}
	return model.NormalizeBars(bars), nil
}

func (s *SQLSource) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT stock_id FROM daily_price ORDER BY stock_id`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// StoreBars upserts bars for symbol, routing IndexSymbol to index_price.
func (s *SQLSource) StoreBars(ctx context.Context, symbol string, bars []model.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	index := s.IndexSymbol != "" && symbol == s.IndexSymbol
	for _, b := range bars {
		date := b.Date.Format(sqlDateLayout)
		if index {
			_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO index_price (trade_date, close) VALUES (?,?)`, date, b.Close)
		} else {
			_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO daily_price
				(stock_id, trade_date, close, high, low, volume) VALUES (?,?,?,?,?,?)`,
				symbol, date, b.Close, b.High, b.Low, b.Volume)
		}
		if err != nil {
			return fmt.Errorf("store %s %s: %w", symbol, date, err)
		}
	}
	return tx.Commit()
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}
