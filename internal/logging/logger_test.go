package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftpursuit/corridor/internal/config"
)

type bufferSyncWriter struct {
	bytes.Buffer
}

func (b *bufferSyncWriter) Sync() error { return nil }

func decodeLines(t *testing.T, raw string) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		records = append(records, record)
	}
	return records
}

func TestLoggerWritesStructuredFields(t *testing.T) {
	sink := &bufferSyncWriter{}
	logger := newLogger(sink, zerolog.InfoLevel).With(String("component", "vehicle"))

	logger.Debug("dropped")
	logger.Info("tick",
		Int("frame", 7),
		Float64("speed", 0.5),
		Duration("dt", 16*time.Millisecond),
		Bool("grounded", true),
		Strings("routes", []string{"/ws", "/livez"}),
		Error(errors.New("boom")),
	)

	records := decodeLines(t, sink.String())
	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, "tick", record["message"])
	assert.Equal(t, "info", record["level"])
	assert.Equal(t, "vehicle", record["component"])
	assert.EqualValues(t, 7, record["frame"])
	assert.EqualValues(t, 0.5, record["speed"])
	assert.Equal(t, true, record["grounded"])
	assert.Equal(t, []any{"/ws", "/livez"}, record["routes"])
	assert.Equal(t, "boom", record["error"])
	assert.Contains(t, record, "time")
}

func TestNilLoggerFallsBackToGlobal(t *testing.T) {
	sink := &bufferSyncWriter{}
	previous := L()
	t.Cleanup(func() { ReplaceGlobals(previous) })
	ReplaceGlobals(newLogger(sink, zerolog.DebugLevel))

	var logger *Logger
	logger.Warn("fallback", String("source", "nil"))

	records := decodeLines(t, sink.String())
	require.Len(t, records, 1)
	assert.Equal(t, "warn", records[0]["level"])
	assert.Equal(t, "nil", records[0]["source"])
}

func TestContextLoggerRoundTrip(t *testing.T) {
	logger := NewTestLogger().With(String("session", "a"))
	ctx := ContextWithLogger(context.Background(), logger)
	if LoggerFromContext(ctx) != logger {
		t.Fatalf("expected context logger to be returned")
	}
	if LoggerFromContext(context.Background()) != L() {
		t.Fatalf("expected global logger without context value")
	}
	if ContextWithLogger(ctx, nil) != ctx {
		t.Fatalf("nil logger must leave context untouched")
	}
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel(" WARNING ")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, level)

	_, err = parseLevel("loud")
	assert.Error(t, err)
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "info", MaxSizeMB: 1})
	assert.Error(t, err)
}

func TestRotatingWriterCompressesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cyclesim.log")
	writer, err := newRotatingWriter(config.LoggingConfig{
		Path:       path,
		MaxSizeMB:  1,
		MaxBackups: 2,
		Compress:   true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	writer.maxSize = 64

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	writer.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	line := bytes.Repeat([]byte("x"), 40)
	for i := 0; i < 6; i++ {
		_, err := writer.Write(line)
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var rotated []string
	for _, entry := range entries {
		if entry.Name() == "cyclesim.log" {
			continue
		}
		rotated = append(rotated, entry.Name())
		assert.True(t, strings.HasSuffix(entry.Name(), ".gz"), "rotated file %s should be compressed", entry.Name())
	}
	assert.Len(t, rotated, 2)
}

func TestWriterLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriterLogger(&buf, "warn")
	require.NoError(t, err)
	logger.Info("quiet")
	logger.Warn("loud", String("component", "session"))

	records := decodeLines(t, buf.String())
	require.Len(t, records, 1)
	assert.Equal(t, "loud", records[0]["message"])
	require.NoError(t, logger.Sync())

	_, err = NewWriterLogger(&buf, "chatty")
	assert.Error(t, err)
}

func TestRotatingWriterDropsExpiredBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cyclesim.log")
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	stale := path + "." + now.Add(-72*time.Hour).Format(backupStamp) + ".gz"
	recent := path + "." + now.Add(-time.Hour).Format(backupStamp)
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(recent, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(path+".notes", []byte("keep"), 0o644))

	writer, err := newRotatingWriter(config.LoggingConfig{Path: path, MaxSizeMB: 1, MaxAgeDays: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	writer.maxSize = 8
	writer.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_, err := writer.Write([]byte("0123456789"))
		require.NoError(t, err)
	}

	assert.NoFileExists(t, stale)
	assert.FileExists(t, recent)
	assert.FileExists(t, path+".notes")
	assert.FileExists(t, path+"."+now.Format(backupStamp))
}
