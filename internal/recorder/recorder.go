package recorder

import (
	"time"

	"github.com/google/uuid"

	"TrendScreener/internal/model"
)

// RunSnapshot holds one screening run and the records it produced.
type RunSnapshot struct {
	ID          string
	StartedAt   time.Time
	Duration    time.Duration
	Summary     model.RunSummary
	FetchFailed int
	MinScore    int
	Passed      []model.ScreenRecord
	Records     []model.ScreenRecord
}

// NewRunSnapshot stamps a snapshot with a fresh run ID.
func NewRunSnapshot(startedAt time.Time) *RunSnapshot {
	return &RunSnapshot{ID: uuid.NewString(), StartedAt: startedAt}
}

// RunInfo is the stored header of a past run.
type RunInfo struct {
	ID          string
	StartedAt   time.Time
	RSMode      string
	HistoryMode string
	Universe    int
	Eligible    int
	Excluded    int
	Passed      int
}

// Recorder persists screening history for analysis.
type Recorder interface {
	RecordRun(snap *RunSnapshot) error
	LatestRuns(limit int) ([]RunInfo, error)
	Close() error
}
