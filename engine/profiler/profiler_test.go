package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfiler_ReportsOncePerInterval(t *testing.T) {
	var buf bytes.Buffer
	now := time.Unix(100, 0)
	p := NewProfiler(
		WithInterval(time.Second),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithNow(func() time.Time { return now }),
	)

	for i := 0; i < 29; i++ {
		now = now.Add(time.Second / 60)
		assert.False(t, p.Tick())
	}
	now = now.Add(time.Second)
	assert.True(t, p.Tick())

	stats := p.Last()
	assert.InDelta(t, 30/(29.0/60+1), stats.FPS, 0.01)
	assert.Greater(t, stats.HeapMB, 0.0)
	assert.Contains(t, buf.String(), "frame stats")
	assert.Contains(t, buf.String(), "fps=")

	now = now.Add(time.Second / 60)
	assert.False(t, p.Tick())
}

func TestProfiler_Defaults(t *testing.T) {
	p := NewProfiler(WithInterval(0), WithLogger(nil), WithNow(nil))
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.logger)
	assert.Equal(t, Stats{}, p.Last())
}
