package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iliyamo/tour-booking/internal/config"
)

func TestNewFileOutput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "server.log")
	log, err := New(config.LogConfig{Level: "debug", Format: "json", Output: "file", File: file, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Debug("reserved", zap.String("booking_number", "CT-260101-ABCDEF012345"))
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(raw), &line))
	assert.Equal(t, "reserved", line["msg"])
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "CT-260101-ABCDEF012345", line["booking_number"])
}

func TestNewRejectsUnknownOutput(t *testing.T) {
	_, err := New(config.LogConfig{Output: "syslog"})
	assert.Error(t, err)
}

func TestNewWriterHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn")
	log.Info("dropped")
	log.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, Level("debug"))
	assert.Equal(t, zapcore.ErrorLevel, Level("error"))
	assert.Equal(t, zapcore.InfoLevel, Level("verbose"))
}
