package debug

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// saveAndRestoreState saves the debug package state and returns a cleanup function
func saveAndRestoreState(t *testing.T) func() {
	t.Setenv("DEBUG", "")
	originalDebug := EnableDebug
	return func() {
		EnableDebug = originalDebug
	}
}

func TestIsDebugEnabled(t *testing.T) {
	defer saveAndRestoreState(t)()

	EnableDebug = "false"
	assert.False(t, IsDebugEnabled())

	EnableDebug = "true"
	assert.True(t, IsDebugEnabled())

	EnableDebug = "invalid"
	assert.False(t, IsDebugEnabled())

	t.Setenv("DEBUG", "1")
	assert.True(t, IsDebugEnabled())
}

func TestLevelForVerbosity(t *testing.T) {
	defer saveAndRestoreState(t)()
	EnableDebug = "false"

	assert.Equal(t, zapcore.WarnLevel, LevelForVerbosity(-3))
	assert.Equal(t, zapcore.WarnLevel, LevelForVerbosity(0))
	assert.Equal(t, zapcore.InfoLevel, LevelForVerbosity(1))
	assert.Equal(t, zapcore.DebugLevel, LevelForVerbosity(2))
	assert.Equal(t, zapcore.DebugLevel, LevelForVerbosity(255))

	EnableDebug = "true"
	assert.Equal(t, zapcore.DebugLevel, LevelForVerbosity(0))
}

func TestNewLoggerRespectsVerbosity(t *testing.T) {
	defer saveAndRestoreState(t)()
	EnableDebug = "false"

	var buf bytes.Buffer
	logger := NewLogger(0, false, &buf)
	logger.Info("read input file")
	logger.Warn("no constraints specified")
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "read input file")
	assert.Contains(t, out, "no constraints specified")
}

func TestNewLoggerJSON(t *testing.T) {
	defer saveAndRestoreState(t)()
	EnableDebug = "false"

	var buf bytes.Buffer
	logger := Component(NewLogger(1, true, &buf), "input")
	logger.Info("read input file")
	require.NoError(t, logger.Sync())

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "read input file", entry["msg"])
	assert.Equal(t, "input", entry["logger"])
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := Nop()
	assert.Same(t, l, OrNop(l))
}
