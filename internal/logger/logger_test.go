package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/palemoky/impostor-party/internal/config"
)

// Tests in this file swap the global logger and are not parallel.

func TestLogFunctions_WriteToCurrentLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	LogDebug("debug %d", 1)
	LogInfo("info %s", "x")
	LogWarn("warn")
	LogError("error %v", assert.AnError)
	LogPanic("boom")

	entries := logs.All()
	require.Len(t, entries, 5)
	assert.Equal(t, "debug 1", entries[0].Message)
	assert.Equal(t, "info x", entries[1].Message)
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
	assert.Equal(t, zap.ErrorLevel, entries[3].Level)
	assert.Equal(t, "recovered panic", entries[4].Message)
	assert.Contains(t, entries[4].ContextMap(), "stack")
}

func TestInit_InvalidLevel(t *testing.T) {
	err := Init(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestInit_WithFile(t *testing.T) {
	t.Cleanup(func() { Set(nil) })

	path := filepath.Join(t.TempDir(), "logs", "lobby.log")
	err := Init(config.LogConfig{Level: "debug", File: path})
	require.NoError(t, err)
	assert.NotNil(t, L())
	Close()
}
