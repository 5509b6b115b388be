package logger_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/itemstore/internal/logger"
	"gorm.io/gorm"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestSlogLoggerFieldsAndModules(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC)

	log.Module("sheets").Module("google").Info("row appended",
		logger.Int("id", 3),
		logger.String("worksheet", "Sheet1"),
		logger.Bool("created", true),
		logger.Duration("elapsed", 1500*time.Millisecond))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "row appended", e["msg"])
	assert.Equal(t, "INFO", e["level"])
	assert.Equal(t, "sheets.google", e["module"])
	assert.InDelta(t, 3, e["id"], 0)
	assert.Equal(t, "Sheet1", e["worksheet"])
	assert.Equal(t, true, e["created"])
	assert.Equal(t, "1.5s", e["elapsed"])
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelWarn, nil)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Log(logger.LogLevelError, "shown too")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, "ERROR", entries[1]["level"])
}

func TestTraceLevelLabel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelTrace, nil)

	log.Trace("sql query")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "TRACE", entries[0]["level"])
}

func TestSensitiveFieldsAreRedacted(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, nil)

	log.Info("login",
		logger.String("password", "pass1234"),
		logger.String("refresh_token", "1//abc"),
		logger.String("token_file", "/srv/token.json"),
		logger.String("username", "user1"))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "[REDACTED]", entries[0]["password"])
	assert.Equal(t, "[REDACTED]", entries[0]["refresh_token"])
	assert.Equal(t, "/srv/token.json", entries[0]["token_file"])
	assert.Equal(t, "user1", entries[0]["username"])
}

func TestWithAndContext(t *testing.T) {
	buf := &bytes.Buffer{}
	base := logger.NewSlogLogger(buf, logger.LogLevelInfo, nil)

	ctx := logger.WithTraceID(context.Background(), "req-123")
	base.With(logger.String("route", "/items")).WithContext(ctx).Error("failed", logger.Error(errors.New("boom")))
	base.Info("plain")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "req-123", entries[0]["trace_id"])
	assert.Equal(t, "/items", entries[0]["route"])
	assert.Equal(t, "boom", entries[0]["error"])
	assert.NotContains(t, entries[1], "trace_id")
	assert.NotContains(t, entries[1], "route")
}

func TestCentralLoggerWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "itemstore.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, MaxSize: 1},
		ModuleLevels: map[string]string{"datastore": "error"},
	})
	require.NoError(t, err)

	cl.Module("api").Debug("request handled", logger.Int("status", 200))
	cl.Module("datastore").Info("suppressed")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	entries := decodeLines(t, bytes.NewBuffer(data))
	require.Len(t, entries, 1)
	assert.Equal(t, "api", entries[0]["module"])
	assert.Contains(t, entries[0], "time")
}

func TestCentralLoggerRejectsBadTimezone(t *testing.T) {
	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	assert.Error(t, err)

	_, err = logger.NewCentralLogger(nil)
	assert.Error(t, err)
}

func TestGormAdapter(t *testing.T) {
	buf := &bytes.Buffer{}
	adapter := logger.NewGormLoggerAdapter(logger.NewSlogLogger(buf, logger.LogLevelTrace, nil), 10*time.Millisecond)
	stmt := func() (string, int64) { return "SELECT * FROM items", 1 }

	adapter.Trace(context.Background(), time.Now(), stmt, nil)
	adapter.Trace(context.Background(), time.Now(), stmt, gorm.ErrRecordNotFound)
	adapter.Trace(context.Background(), time.Now(), stmt, errors.New("no such table"))
	adapter.Trace(context.Background(), time.Now().Add(-time.Second), stmt, nil)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 4)
	assert.Equal(t, "sql query", entries[0]["msg"])
	assert.Equal(t, "sql query", entries[1]["msg"])
	assert.Equal(t, "query error", entries[2]["msg"])
	assert.Equal(t, "slow query", entries[3]["msg"])
}
