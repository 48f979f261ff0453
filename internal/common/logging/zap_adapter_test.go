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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("WARNING"))
	assert.Equal(t, ErrorLevel, ParseLevel("Error"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatConsole, ParseFormat("console"))
	assert.Equal(t, FormatConsole, ParseFormat(""))
}

func TestZapAdapter(t *testing.T) {
	t.Run("basic logging", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: DebugLevel, Output: &buf, TimeFormat: time.RFC3339})
		require.NoError(t, err)

		logger.Debug("debug message", Field{"key", "value"})
		logger.Info("info message", Field{"count", 42})
		logger.Warn("warn message", Field{"enabled", true})
		logger.Error("error message", errors.New("token endpoint down"), Field{"attempt", 3})

		output := buf.String()
		assert.Contains(t, output, "DEBUG")
		assert.Contains(t, output, "debug message")
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "WARN")
		assert.Contains(t, output, "ERROR")
		assert.Contains(t, output, "token endpoint down")
	})

	t.Run("level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: WarnLevel, Output: &buf})
		require.NoError(t, err)

		logger.Info("hidden")
		logger.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("json format with fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Format: FormatJSON, Output: &buf})
		require.NoError(t, err)

		logger = logger.WithFields(Field{"component", "credentials"})
		logger.Info("token refreshed", Duration("next_refresh", 1000*time.Second))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "token refreshed", entry["msg"])
		assert.Equal(t, "credentials", entry["component"])
		assert.Equal(t, "INFO", entry["level"])
		assert.Contains(t, entry, "next_refresh")
	})

	t.Run("with context request id", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Format: FormatJSON, Output: &buf})
		require.NoError(t, err)

		ctx := ContextWithRequestID(context.Background(), "req-123")
		logger.WithContext(ctx).Info("forwarded")

		assert.Contains(t, buf.String(), `"request_id":"req-123"`)
	})

	t.Run("with context without request id returns same logger", func(t *testing.T) {
		logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Output: &bytes.Buffer{}})
		require.NoError(t, err)

		assert.Same(t, logger, logger.WithContext(context.Background()))
		assert.Same(t, logger, logger.WithFields())
	})
}

func TestRequestIDFromContext(t *testing.T) {
	_, ok := RequestIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = RequestIDFromContext(ContextWithRequestID(context.Background(), ""))
	assert.False(t, ok)

	id, ok := RequestIDFromContext(ContextWithRequestID(context.Background(), "abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}

func TestInitGlobalLogger(t *testing.T) {
	previous := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(previous) })

	logFile := filepath.Join(t.TempDir(), "gateway.log")
	require.NoError(t, InitGlobalLogger("debug", "json", logFile))

	Debug("global debug line")
	MustSync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "Logger initialized"))
	assert.True(t, strings.Contains(string(data), "global debug line"))
}

func TestInitGlobalLogger_BadFile(t *testing.T) {
	err := InitGlobalLogger("info", "console", filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("ignored")
	logger.Error("ignored", errors.New("x"))
	assert.NotNil(t, logger.WithFields(Field{"a", 1}))
	assert.NotNil(t, logger.WithContext(context.Background()))
}
