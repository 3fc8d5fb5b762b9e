package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendScreener/internal/model"
)

var asOf = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

func sample() []model.ScreenRecord {
	lead := model.ScreenRecord{
		Symbol:           "AAA",
		AsOf:             asOf,
		Close:            150,
		WeightedScore:    6.5,
		RSScore:          100,
		QuarterReturnPct: 50,
		High52w:          150,
		Low52w:           100,
		Returns:          model.ReturnVector{Windows: []int{60, 120, 180, 240}, Ratios: []float64{1.5, 1.5, 1.5, 1.5}},
		TotalScore:       8,
		ExplosiveSetup:   true,
		VolumeChecked:    true,
		VolumeExpansion:  true,
		Relative: &model.RelativeStrength{
			Values:  []float64{136.3636, 0, 0, 0},
			Defined: []bool{true, false, false, false},
		},
	}
	for i := range lead.Checklist.Criteria {
		lead.Checklist.Criteria[i] = true
	}
	lag := model.ScreenRecord{Symbol: "BBB", AsOf: asOf, Close: 100.005, WeightedScore: 5, RSScore: 100.0 / 3, TotalScore: 1}
	lag.Checklist.Criteria[6] = true
	return []model.ScreenRecord{lead, lag}
}

func TestHeader(t *testing.T) {
	h := Header()
	assert.Len(t, h, 9+model.NumCriteria+3)
	assert.Equal(t, "rank", h[0])
	assert.Equal(t, "price_above_ma150_ma200", h[9])
	assert.Equal(t, "rs_trend", h[16])
	assert.Equal(t, "volume_expansion", h[len(h)-1])
}

func TestFixed(t *testing.T) {
	assert.Equal(t, "33.33", Fixed(100.0/3, 2))
	assert.Equal(t, "150.00", Fixed(150, 2))
	assert.Equal(t, "", Fixed(math.NaN(), 2))
	assert.Equal(t, "", Fixed(math.Inf(1), 2))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header(), rows[0])

	lead := rows[1]
	assert.Equal(t, []string{"1", "AAA", "2024-06-28", "150.00", "6.5000", "100.00", "50.00", "150.00", "100.00"}, lead[:9])
	assert.Equal(t, "true", lead[16])
	assert.Equal(t, []string{"8", "true", "true"}, lead[17:])

	lag := rows[2]
	assert.Equal(t, "33.33", lag[5])
	assert.Equal(t, "false", lag[9])
	assert.Equal(t, "true", lag[15])
	assert.Equal(t, "", lag[len(lag)-1], "volume gate not evaluated")
}

func TestWriteJSON(t *testing.T) {
	summary := model.RunSummary{
		Universe: 3, Eligible: 2, Strong: 1,
		Excluded: map[model.ExclusionReason]int{model.ExclusionArithmetic: 1},
		RSMode:   "benchmark_relative", HistoryMode: "strict",
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, summary, sample(), asOf))
	assert.Contains(t, buf.String(), "\n  \"summary\"")

	var got struct {
		GeneratedAt string `json:"generated_at"`
		Summary     struct {
			Universe int            `json:"universe"`
			Excluded map[string]int `json:"excluded"`
		} `json:"summary"`
		Records []struct {
			Symbol          string          `json:"symbol"`
			RSScore         float64         `json:"rs_score"`
			Returns         []float64       `json:"returns"`
			RelativeRS      []*float64      `json:"relative_rs"`
			Criteria        map[string]bool `json:"criteria"`
			VolumeExpansion *bool           `json:"volume_expansion"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "2024-06-28T00:00:00Z", got.GeneratedAt)
	assert.Equal(t, 3, got.Summary.Universe)
	assert.Equal(t, map[string]int{"arithmetic": 1}, got.Summary.Excluded)
	require.Len(t, got.Records, 2)

	lead := got.Records[0]
	assert.Equal(t, []float64{1.5, 1.5, 1.5, 1.5}, lead.Returns)
	require.Len(t, lead.RelativeRS, 4)
	assert.Equal(t, 136.3636, *lead.RelativeRS[0])
	assert.Nil(t, lead.RelativeRS[1])
	assert.True(t, lead.Criteria["rs_trend"])
	require.NotNil(t, lead.VolumeExpansion)

	lag := got.Records[1]
	assert.Equal(t, 33.3333, lag.RSScore)
	assert.Nil(t, lag.VolumeExpansion)
	assert.Nil(t, lag.RelativeRS)
}
