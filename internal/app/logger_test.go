package app

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, LogFormatJSON, "info")
	require.NoError(t, err)

	logger.Info("step %d as %s", 3, "tester")
	logger.Debug("hidden %d", 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "step 3 as tester", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, LogFormatText, "warn")
	require.NoError(t, err)

	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestNewLogger_Tint(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, LogFormatTint, "debug")
	require.NoError(t, err)

	logger.Debug("attempt %d/%d", 1, 3)
	assert.Contains(t, buf.String(), "attempt 1/3")
}

func TestNewLogger_Errors(t *testing.T) {
	_, err := NewLogger(&bytes.Buffer{}, "xml", "info")
	assert.Error(t, err)

	_, err = NewLogger(&bytes.Buffer{}, LogFormatText, "loud")
	assert.Error(t, err)
}

func TestSetLogger_IgnoresNil(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	SetLogger(nil)
	assert.Equal(t, original, GetLogger())

	discard := NewDiscardLogger()
	SetLogger(discard)
	assert.Equal(t, discard, GetLogger())
}
