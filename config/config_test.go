package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	conf, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), conf)
	require.True(t, conf.CycleThermalProfile)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manager.yaml")
	raw := []byte(`
model: PHN16-72
state_dir: /tmp/state
cycle_thermal_profile: false
dry_run: true
log:
  path: /tmp/manager.log
`)
	require.NoError(t, ioutil.WriteFile(path, raw, 0644))

	conf, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "PHN16-72", conf.Model)
	require.Equal(t, "/tmp/state", conf.StateDir)
	require.False(t, conf.CycleThermalProfile)
	require.True(t, conf.DryRun)
	require.Equal(t, "/tmp/manager.log", conf.Log.Path)
	require.Equal(t, 5, conf.Log.MaxSizeMB)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manager.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte("state_dir: [broken"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsEmptyStateDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manager.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(`state_dir: ""`), 0644))

	_, err := Load(path)
	require.Error(t, err)
}
