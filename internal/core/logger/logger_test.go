package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "buildctl.log")

	log, err := Init(Options{Level: "info", Format: "json", File: path})
	require.NoError(t, err)
	log.Info("bootstrap", "binary", "build.bin")
	log.Debug("hidden")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"bootstrap"`)
	assert.Contains(t, string(data), `"binary":"build.bin"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestDebugAddsStderrSink(t *testing.T) {
	var buf bytes.Buffer
	log, err := Init(Options{Level: "error", Debug: true, Stderr: &buf})
	require.NoError(t, err)

	log.Debug("dispatching", "subcommand", "build_all")
	assert.Contains(t, buf.String(), "subcommand=build_all")
}

func TestWithoutSinksDiscards(t *testing.T) {
	log, err := Init(Options{})
	require.NoError(t, err)
	log.Info("nowhere")
	assert.NoError(t, log.Close())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNop(t *testing.T) {
	var l *Logger
	assert.NoError(t, l.Close())
	Nop().Info("dropped")
}
