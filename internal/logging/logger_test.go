package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"fatal", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: "text", Output: &buf})
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, nil, "warn message")
	logger.Error(ctx, errors.New("boom"), "error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
	assert.Contains(t, out, "error=boom")
}

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("compiler").With("root", "App").Info(context.Background(), "compiled", "factories", 3)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "compiled", record["msg"])
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "compiler", record["component"])
	assert.Equal(t, "App", record["root"])
	assert.Equal(t, float64(3), record["factories"])
}

func TestWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "text", Output: &buf})
	_ = parent.With("child", true)

	parent.Info(context.Background(), "parent")
	assert.NotContains(t, buf.String(), "child=true")
}

func TestOddFieldsAreIgnored(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "text", Output: &buf})

	logger.Info(context.Background(), "odd", "key", "value", "dangling")
	out := buf.String()
	assert.Contains(t, out, "key=value")
	assert.NotContains(t, out, "dangling")
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() {
		logger.Error(context.Background(), errors.New("x"), "dropped")
	})
}

func TestStartOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "text", Output: &buf})
	ctx := context.Background()

	StartOperation(logger, "scan").End(ctx, "files", 2)
	StartOperation(logger, "compile").EndWithError(ctx, errors.New("cycle"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "operation=scan")
	assert.Contains(t, lines[0], "files=2")
	assert.Contains(t, lines[0], "duration_ms=")
	assert.Contains(t, lines[1], "operation=compile")
	assert.Contains(t, lines[1], "error=cycle")
}

func TestFormatLevel(t *testing.T) {
	plain := LevelStyles{UseColors: false}
	assert.Equal(t, "WARN", plain.FormatLevel(LevelWarn))

	colored := LevelStyles{UseColors: true}
	assert.Contains(t, colored.FormatLevel(LevelWarn), "WARN")
	assert.Equal(t, "UNKNOWN", colored.FormatLevel(LogLevel(9)))
}
