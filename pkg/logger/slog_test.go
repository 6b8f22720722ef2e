package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("creates logger with custom writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := New(slog.LevelInfo, buf)

		require.NotNil(t, logger)
	})

	t.Run("creates logger with default writer when nil", func(t *testing.T) {
		logger := New(slog.LevelInfo, nil)

		require.NotNil(t, logger)
	})
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *slog.Logger)
		label string
	}{
		{"info", func(l *slog.Logger) { l.Info("info message") }, "INF"},
		{"warn", func(l *slog.Logger) { l.Warn("warn message") }, "WRN"},
		{"error", func(l *slog.Logger) { l.Error("error message") }, "ERR"},
		{"debug", func(l *slog.Logger) { l.Debug("debug message") }, "DBG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(slog.LevelDebug, buf)

			tt.log(logger)
			output := buf.String()

			assert.Contains(t, output, tt.label)
			assert.Contains(t, output, tt.name+" message")
		})
	}
}

func TestAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(slog.LevelInfo, buf)

	logger.Info("module connected", "module_id", 101, "addr", "127.0.0.1:7111")
	output := buf.String()

	assert.Contains(t, output, "module connected")
	assert.Contains(t, output, "module_id=101")
	assert.Contains(t, output, "addr=127.0.0.1:7111")
}

func TestWithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(slog.LevelInfo, buf).With("component", "broker")

	logger.Info("listening")
	output := buf.String()

	assert.Contains(t, output, "component=broker")
	assert.Contains(t, output, "listening")
}

func TestMinLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(slog.LevelWarn, buf)

	logger.Debug("hidden")
	logger.Info("also hidden")
	logger.Warn("visible")

	output := buf.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "visible")
	assert.Equal(t, 1, strings.Count(output, "\n"))
}

func TestHandlerEnabled(t *testing.T) {
	h := &ColoredHandler{minLevel: slog.LevelInfo}

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
