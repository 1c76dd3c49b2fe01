package appconfig_test

import (
	"path/filepath"
	"testing"

	"github.com/lookbusy1344/zpaqgo/internal/appconfig"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := appconfig.DefaultConfig()

	require.Equal(t, 1, cfg.Compression.DefaultLevel)
	require.True(t, cfg.Compression.Checksum)
	require.False(t, cfg.Archive.LocatorTag)
	require.True(t, cfg.Archive.AppendBlocks)
	require.False(t, cfg.Trace.Enabled)
	require.Equal(t, "text", cfg.Trace.Format)
	require.Equal(t, "json", cfg.Statistics.Format)
}

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := appconfig.LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, appconfig.DefaultConfig(), cfg)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := appconfig.DefaultConfig()
	cfg.Compression.DefaultLevel = 3
	cfg.Trace.Enabled = true
	cfg.Trace.OutputFile = "custom-trace.log"

	require.NoError(t, cfg.SaveTo(path))

	loaded, err := appconfig.LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}
