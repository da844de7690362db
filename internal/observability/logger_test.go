package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", zap.String("run_id", "r1"))
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "r1")
}

func TestNewFileCoreWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cadence.log")
	logger, err := New(Options{File: path}, nil)
	require.NoError(t, err)

	logger.Info("run finished", zap.Int("chars", 12))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"run finished"`)
	assert.Contains(t, string(data), `"chars":12`)
	assert.Contains(t, string(data), `"logger":"cadence"`)
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"}, nil)
	assert.Error(t, err)
}

func TestNewWithoutSinksIsNop(t *testing.T) {
	logger, err := New(Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, zap.NewNop().Core().Enabled(zapcore.ErrorLevel), logger.Core().Enabled(zapcore.ErrorLevel))
}
