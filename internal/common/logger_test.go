package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/berrythewa/filebridge/internal/config"
)

func TestNewLoggerLevel(t *testing.T) {
	cfg := &config.Config{Log: config.LogConfig{Level: "warn", Format: "json"}}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewLoggerBadLevelFallsBackToInfo(t *testing.T) {
	cfg := &config.Config{Log: config.LogConfig{Level: "chatty", Format: "console"}}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNewLoggerFileOutput(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	cfg := &config.Config{
		Log:         config.LogConfig{Level: "info", Format: "json", EnableFileLogging: true},
		SystemPaths: config.ConfigPaths{LogDir: logDir},
	}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	logger.Info("hello from the bridge")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(logDir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the bridge")
}
