package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"TrendScreener/internal/model"
)

var dateLayouts = []string{"2006-01-02", "2006/01/02", "20060102", time.RFC3339}

// CSVSource reads a local cache directory holding one <SYMBOL>.csv per
// instrument, with a header naming at least date and close columns.
type CSVSource struct {
	Dir string
}

// NewCSVSource creates a source over dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir}
}

func (s *CSVSource) Name() string { return "csv" }

func (s *CSVSource) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.Dir, symbol+".csv"))
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", symbol, err)
	}
	defer f.Close()

	bars, err := ReadBarsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", symbol, err)
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// ListSymbols returns the symbols of every .csv file in the directory.
func (s *CSVSource) ListSymbols(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("list csv dir: %w", err)
	}
	var symbols []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		symbols = append(symbols, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ReadBarsCSV parses bars from CSV with a header row. Column names are
// matched case-insensitively; high, low and volume are optional.
func ReadBarsCSV(r io.Reader) ([]model.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	dateCol, ok := cols["date"]
	if !ok {
		return nil, errors.New("missing date column")
	}
	closeCol, ok := cols["close"]
	if !ok {
		return nil, errors.New("missing close column")
	}

	var bars []model.Bar
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) <= closeCol || len(rec) <= dateCol {
			continue
		}
		date, err := parseDate(rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		closePx, err := strconv.ParseFloat(strings.TrimSpace(rec[closeCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: close: %w", line, err)
		}
		bars = append(bars, model.Bar{
			Date:   date,
			Close:  closePx,
			High:   optional(rec, cols, "high"),
			Low:    optional(rec, cols, "low"),
			Volume: optional(rec, cols, "volume"),
		})
	}
	return model.NormalizeBars(bars), nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func optional(rec []string, cols map[string]int, name string) float64 {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	if err != nil {
		return 0
	}
	return v
}

// LoadSymbolsCSV reads the first column of a symbol list, skipping the header.
func LoadSymbolsCSV(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open symbol file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read symbol file: %w", err)
	}

	var symbols []string
	for i, record := range records {
		if i == 0 || len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		symbols = append(symbols, strings.TrimSpace(strings.ToUpper(record[0])))
	}
	return symbols, nil
}
