package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"daily_story_server/generator"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestFileSinkRecordsSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story_log.txt")
	sink := NewFileSink(path, zap.NewNop())

	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	sink.Record(generator.AuditRecord{
		ID:        "attempt-1",
		Timestamp: ts,
		Prompt:    "Tell me about someone remarkable.",
		Outcome:   `{"name":"Ada Lovelace"}`,
	})

	got := readLog(t, path)
	assert.Contains(t, got, separator)
	assert.Contains(t, got, "Attempt:      attempt-1")
	assert.Contains(t, got, "Time (UTC):   2026-03-14T09:26:53Z")
	assert.Contains(t, got, "Time (local): ")
	assert.Contains(t, got, "Prompt:\nTell me about someone remarkable.")
	assert.Contains(t, got, `Outcome: {"name":"Ada Lovelace"}`)
	assert.NotContains(t, got, "Error:")
}

func TestFileSinkRecordsFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story_log.txt")
	sink := NewFileSink(path, zap.NewNop())

	sink.Record(generator.AuditRecord{
		ID:        "attempt-2",
		Timestamp: time.Now(),
		Prompt:    "Tell me about someone remarkable.",
		Error:     "anthropic API error (HTTP 429): rate limited",
	})

	got := readLog(t, path)
	assert.Contains(t, got, "Error: anthropic API error (HTTP 429): rate limited")
	assert.NotContains(t, got, "Outcome:")
}

func TestFileSinkAppendsBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story_log.txt")
	sink := NewFileSink(path, nil)

	sink.Record(generator.AuditRecord{ID: "first", Timestamp: time.Now(), Prompt: "p1", Outcome: "o1"})
	sink.Record(generator.AuditRecord{ID: "second", Timestamp: time.Now(), Prompt: "p2", Error: "e2"})

	got := readLog(t, path)
	assert.Equal(t, 2, strings.Count(got, separator), "one separator per record")
	first := strings.Index(got, "Attempt:      first")
	second := strings.Index(got, "Attempt:      second")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first, "records append in order")
	assert.Contains(t, got, "Outcome: o1")
	assert.Contains(t, got, "Error: e2")
}

func TestFileSinkUnwritablePathDoesNotPanic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "story_log.txt")
	sink := NewFileSink(path, zap.NewNop())

	assert.NotPanics(t, func() {
		sink.Record(generator.AuditRecord{ID: "x", Timestamp: time.Now(), Prompt: "p"})
	})
	_, err := os.Stat(path)
	assert.Error(t, err, "nothing must be created when the directory is missing")
}
