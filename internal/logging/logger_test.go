package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.log")
	logger, err := New(Config{Env: "prod", Level: "warn", File: path})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("slow client", zap.String("client", "c1"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "slow client", entry["msg"])
	assert.Equal(t, "c1", entry["client"])
	assert.Equal(t, "warn", entry["level"])
}

func TestNewLocalConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.log")
	logger, err := New(Config{Env: "local", Level: "debug", File: path})
	require.NoError(t, err)

	logger.Debug("sort requested")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEBUG")
	assert.Contains(t, string(data), "sort requested")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}
