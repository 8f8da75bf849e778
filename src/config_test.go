package mmdvm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	var cfg = DefaultConfig()

	assert.Equal(t, "file", cfg.Driver)
	assert.Equal(t, 11, cfg.FilterLength)
	assert.Equal(t, float32(0.5), cfg.FilterCutoff)
	assert.Equal(t, MONITOR_ENDPOINT, cfg.MonitorEndpoint)
	assert.Equal(t, SERIAL_SYMLINK, cfg.SerialSymlink)
}

func TestLoadConfig(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "mmdvm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
driver: limesdr
rxFrequency: 434.5e6
txFrequency: 439.5e6
rxGain: 40
latencyBlocks: 4
monitor: true
`), 0o644))

	var cfg, err = LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "limesdr", cfg.Driver)
	assert.Equal(t, 434.5e6, cfg.RXFrequency)
	assert.Equal(t, 439.5e6, cfg.TXFrequency)
	assert.Equal(t, 40.0, cfg.RXGain)
	assert.Equal(t, 4, cfg.LatencyBlocks)
	assert.True(t, cfg.Monitor)

	// Unset keys keep their defaults.
	assert.Equal(t, 30.0, cfg.TXGain)
	assert.Equal(t, 11, cfg.FilterLength)
}

func TestLoadConfig_Missing(t *testing.T) {
	var _, err = LoadConfig(filepath.Join(t.TempDir(), "nonesuch.yaml"))
	assert.Error(t, err)
}
