package loggy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileLogger(t *testing.T, level slog.Level) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs", "oplink.log")
	logger, err := New(Config{Level: level, Format: "json", Output: path, AddSource: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })
	return logger, path
}

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_WritesJSONWithSource(t *testing.T) {
	logger, path := newFileLogger(t, slog.LevelInfo)

	logger.With("component", "test").Info("hello", "count", 3)

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0]["msg"])
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "test", entries[0]["component"])
	assert.EqualValues(t, 3, entries[0]["count"])
	assert.Contains(t, entries[0]["source"], "loggy_test.go:")
}

func TestLogger_LevelFilter(t *testing.T) {
	logger, path := newFileLogger(t, slog.LevelWarn)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.WithError(errors.New("boom")).Error("error")

	entries := readEntries(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["msg"])
	assert.Equal(t, "error", entries[1]["msg"])
	assert.Equal(t, "boom", entries[1]["error"])
}

func TestLogger_RequestIDFromContext(t *testing.T) {
	logger, path := newFileLogger(t, slog.LevelInfo)

	ctx := WithRequestID(context.Background(), "req_123")
	logger.Log(ctx, slog.LevelInfo, "request")

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "req_123", entries[0]["request_id"])
}

func TestFromContext(t *testing.T) {
	fallback := NewNoopLogger()
	stored := NewNoopLogger()

	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.Same(t, stored, FromContext(WithLogger(context.Background(), stored), fallback))
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.Info("ignored")
		assert.NoError(t, logger.Close())
	})
}
