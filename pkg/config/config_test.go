package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/pgpscan/pkg/trace"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1<<20, cfg.Limits.MaxPacketSize)
	assert.Equal(t, 8192, cfg.Limits.StagingCapacity)
	assert.Equal(t, 4, cfg.Limits.MarkerDepth)
	assert.False(t, cfg.Memory.LockedStaging)
	assert.True(t, cfg.Trace.Hex)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel())
	require.NoError(t, cfg.Validate())
}

func TestParsePartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
limits:
  staging_capacity: 512
memory:
  locked_staging: true
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.Limits.StagingCapacity)
	assert.Equal(t, 1<<20, cfg.Limits.MaxPacketSize)
	assert.Equal(t, 4, cfg.Limits.MarkerDepth)
	assert.True(t, cfg.Memory.LockedStaging)
	assert.True(t, cfg.Trace.Hex)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel())
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("limits:\n  max_size: 3\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	_, err := Parse([]byte(`
limits:
  max_packet_size: 0
  marker_depth: 1
log:
  level: loud
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limits.max_packet_size")
	assert.Contains(t, err.Error(), "limits.marker_depth")
	assert.Contains(t, err.Error(), "log.level")
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgpscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trace:\n  hex: false\n"), 0o600))
	t.Setenv(EnvVar, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Trace.Hex)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv(EnvVar, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDecoderConfig(t *testing.T) {
	cfg := Default()
	cfg.Limits.StagingCapacity = 64
	cfg.Memory.LockedStaging = true

	dc := cfg.Decoder(trace.Discard, nil)
	assert.Equal(t, 64, dc.StagingCapacity)
	assert.Equal(t, 1<<20, dc.MaxPacketSize)
	assert.True(t, dc.LockedStaging)
	assert.Equal(t, trace.Discard, dc.Trace)
}
