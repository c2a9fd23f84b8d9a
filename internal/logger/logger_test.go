package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevelRejectsUnknownName(t *testing.T) {
	_, err := ParseLevel("not-a-level")
	assert.Error(t, err)
}

func TestNewBuildsConsoleOnlyLoggerWithoutLogFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFile = ""
	cfg.Level = "Debug"

	log, level, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.True(t, level.Enabled(-1)) // debug level
}

func TestWatchLevelReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telescoped.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logger:\n  level: Error\n"), 0o644))

	cfg := DefaultConfig()
	cfg.LogFile = ""
	cfg.Level = "Error"
	log, level, err := New(cfg)
	require.NoError(t, err)

	stop, err := WatchLevel(log, level, path)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("logger:\n  level: Debug\n"), 0o644))

	require.Eventually(t, func() bool {
		return level.Level().String() == "debug"
	}, 2*time.Second, 10*time.Millisecond)
}
