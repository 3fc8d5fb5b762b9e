package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/pretty"

	"TrendScreener/internal/model"
)

// Header is the stable CSV column order.
func Header() []string {
	h := []string{"rank", "symbol", "as_of", "close", "weighted_score", "rs_score", "quarter_return_pct", "high_52w", "low_52w"}
	h = append(h, model.CriterionLabels[:]...)
	return append(h, "total_score", "explosive_setup", "volume_expansion")
}

// Fixed renders v with the given number of decimals; non-finite values render empty.
func Fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// WriteCSV writes records in the order given under Header.
func WriteCSV(w io.Writer, records []model.ScreenRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for i, r := range records {
		row := []string{
			strconv.Itoa(i + 1),
			r.Symbol,
			r.AsOf.Format("2006-01-02"),
			Fixed(r.Close, 2),
			Fixed(r.WeightedScore, 4),
			Fixed(r.RSScore, 2),
			Fixed(r.QuarterReturnPct, 2),
			Fixed(r.High52w, 2),
			Fixed(r.Low52w, 2),
		}
		for _, ok := range r.Checklist.Criteria {
			row = append(row, strconv.FormatBool(ok))
		}
		row = append(row,
			strconv.Itoa(r.TotalScore),
			strconv.FormatBool(r.ExplosiveSetup),
			volumeCell(r),
		)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", r.Symbol, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func volumeCell(r model.ScreenRecord) string {
	if !r.VolumeChecked {
		return ""
	}
	return strconv.FormatBool(r.VolumeExpansion)
}

type jsonRecord struct {
	Rank             int             `json:"rank"`
	Symbol           string          `json:"symbol"`
	AsOf             string          `json:"as_of"`
	Close            float64         `json:"close"`
	WeightedScore    float64         `json:"weighted_score"`
	RSScore          float64         `json:"rs_score"`
	QuarterReturnPct float64         `json:"quarter_return_pct"`
	High52w          float64         `json:"high_52w"`
	Low52w           float64         `json:"low_52w"`
	Returns          []float64       `json:"returns"`
	RelativeRS       []*float64      `json:"relative_rs,omitempty"`
	Criteria         map[string]bool `json:"criteria"`
	TotalScore       int             `json:"total_score"`
	ExplosiveSetup   bool            `json:"explosive_setup"`
	VolumeExpansion  *bool           `json:"volume_expansion,omitempty"`
}

type jsonSummary struct {
	Universe    int            `json:"universe"`
	Eligible    int            `json:"eligible"`
	Excluded    map[string]int `json:"excluded"`
	Strong      int            `json:"strong"`
	RSMode      string         `json:"rs_mode"`
	HistoryMode string         `json:"history_mode"`
}

type jsonReport struct {
	GeneratedAt string       `json:"generated_at"`
	Summary     jsonSummary  `json:"summary"`
	Records     []jsonRecord `json:"records"`
}

// WriteJSON writes an indented report of the summary and records.
func WriteJSON(w io.Writer, summary model.RunSummary, records []model.ScreenRecord, generatedAt time.Time) error {
	rep := jsonReport{
		GeneratedAt: generatedAt.Format(time.RFC3339),
		Summary: jsonSummary{
			Universe:    summary.Universe,
			Eligible:    summary.Eligible,
			Excluded:    map[string]int{},
			Strong:      summary.Strong,
			RSMode:      summary.RSMode,
			HistoryMode: summary.HistoryMode,
		},
		Records: make([]jsonRecord, 0, len(records)),
	}
	for reason, n := range summary.Excluded {
		rep.Summary.Excluded[string(reason)] = n
	}
	for i, r := range records {
		jr := jsonRecord{
			Rank:             i + 1,
			Symbol:           r.Symbol,
			AsOf:             r.AsOf.Format("2006-01-02"),
			Close:            round(r.Close, 4),
			WeightedScore:    round(r.WeightedScore, 6),
			RSScore:          round(r.RSScore, 4),
			QuarterReturnPct: round(r.QuarterReturnPct, 4),
			High52w:          round(r.High52w, 4),
			Low52w:           round(r.Low52w, 4),
			Criteria:         r.Checklist.Labeled(),
			TotalScore:       r.TotalScore,
			ExplosiveSetup:   r.ExplosiveSetup,
		}
		for _, ratio := range r.Returns.Ratios {
			jr.Returns = append(jr.Returns, round(ratio, 6))
		}
		if rel := r.Relative; rel != nil {
			for k, v := range rel.Values {
				if k < len(rel.Defined) && rel.Defined[k] {
					rv := round(v, 4)
					jr.RelativeRS = append(jr.RelativeRS, &rv)
				} else {
					jr.RelativeRS = append(jr.RelativeRS, nil)
				}
			}
		}
		if r.VolumeChecked {
			v := r.VolumeExpansion
			jr.VolumeExpansion = &v
		}
		rep.Records = append(rep.Records, jr)
	}

	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = w.Write(pretty.Pretty(data))
	return err
}
