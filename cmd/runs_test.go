package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/movie-etl/internal/store"
)

func TestFormatRun(t *testing.T) {
	started := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	run := &store.Run{
		ID:         "abc12345-6789-0000-0000-000000000000",
		Status:     store.RunStatusComplete,
		Summary:    []byte(`{"rating_events":3}`),
		StartedAt:  started,
		FinishedAt: &finished,
	}

	var buf bytes.Buffer
	require.NoError(t, formatRun(&buf, run))

	out := buf.String()
	assert.Contains(t, out, "abc12345")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "2025-06-15 10:30:00")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, `"rating_events": 3`)
	assert.NotContains(t, out, "ERROR")
}

func TestFormatRun_FailedWithoutSummary(t *testing.T) {
	run := &store.Run{
		ID:        "def",
		Status:    store.RunStatusFailed,
		Error:     "resolve source: SourceUnavailable: missing.csv",
		StartedAt: time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, formatRun(&buf, run))
	assert.Contains(t, buf.String(), "ERROR")
	assert.Contains(t, buf.String(), "SourceUnavailable")
	assert.NotContains(t, buf.String(), "FINISHED")
}

func TestFormatRun_BadSummary(t *testing.T) {
	run := &store.Run{ID: "x", Status: store.RunStatusComplete, Summary: []byte("{")}
	assert.Error(t, formatRun(&bytes.Buffer{}, run))
}
