package util

import (
	"bytes"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, NewLogger("debug").GetLevel())
	assert.Equal(t, zerolog.WarnLevel, NewLogger("WARN").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewLogger("invalid").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewLogger("").GetLevel())
}

func TestNewLoggerTo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info")
	logger.Debug().Msg("hidden")
	logger.Info().Str("symbol", "AAPL").Msg("fetched")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"symbol":"AAPL"`)
}

func TestForEach(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 100} {
		seen := make([]int32, 50)
		var calls int32
		ForEach(len(seen), workers, func(i int) {
			atomic.AddInt32(&seen[i], 1)
			atomic.AddInt32(&calls, 1)
		})
		assert.Equal(t, int32(50), calls, "workers=%d", workers)
		for i, n := range seen {
			assert.Equal(t, int32(1), n, "index %d workers=%d", i, workers)
		}
	}

	ForEach(0, 4, func(int) { t.Fatal("unexpected call") })
}
