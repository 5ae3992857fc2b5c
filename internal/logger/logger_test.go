package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewLogger_JSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(LoggerConfig{Level: "debug", Console: true, Output: &buf})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.Info("hello")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewLogger_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	log, err := NewLogger(LoggerConfig{Level: "info", FilePath: path, MaxSize: 1})
	require.NoError(t, err)

	WithFile(log, "a.png").Info("compressed")
	WithOperation(log, "batch").Warn("done")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"file":"a.png"`)
	assert.Contains(t, string(data), `"operation":"batch"`)
}

func TestNewLogger_FileAndConsole(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := NewLogger(LoggerConfig{Level: "info", FilePath: path, Console: true, Output: &buf})
	require.NoError(t, err)

	log.Info("both")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"both"`)
	assert.Contains(t, buf.String(), `"message":"both"`)
}

func TestFromContext_CarriesRequestFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(LoggerConfig{Level: "info", Console: true, Output: &buf})
	require.NoError(t, err)

	ctx := ContextWithRequest(context.Background(), "req-1", "/api/compress")
	assert.Equal(t, "req-1", RequestID(ctx))

	FromContext(ctx, log).WithField("file", "a.gif").Info("hello")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "/api/compress", entry["route"])
	assert.Equal(t, "a.gif", entry["file"])
}

func TestFromContext_WithoutRequest(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(LoggerConfig{Level: "info", Console: true, Output: &buf})
	require.NoError(t, err)

	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))

	FromContext(ctx, log).Info("batch")

	entry := decodeEntry(t, &buf)
	assert.NotContains(t, entry, "request_id")
	assert.NotContains(t, entry, "route")
}

func TestLoggerConfig_WithVerbosity(t *testing.T) {
	base := LoggerConfig{Level: "info", Console: true}

	tests := []struct {
		name        string
		verbose     bool
		quiet       bool
		wantLevel   string
		wantConsole bool
	}{
		{"neither", false, false, "info", true},
		{"verbose", true, false, "debug", true},
		{"quiet", false, true, "error", false},
		{"quiet wins", true, true, "error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := base.WithVerbosity(tt.verbose, tt.quiet)
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.wantConsole, got.Console)
		})
	}
	assert.Equal(t, "info", base.Level)
}
