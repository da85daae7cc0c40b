package config

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the manager's on-disk configuration. All fields have
// working defaults so the manager runs without a file at all.
type Config struct {
	// Model overrides the DMI product name. Empty means autodetect.
	Model string `yaml:"model"`

	// StateDir holds the persisted firmware state mirror.
	StateDir string `yaml:"state_dir"`

	// CycleThermalProfile makes the mode key walk the profile ladder
	// one step at a time instead of bouncing between the maximum
	// profile and the last used one.
	CycleThermalProfile bool `yaml:"cycle_thermal_profile"`

	// DryRun logs firmware commands without submitting them.
	DryRun bool `yaml:"dry_run"`

	// CheckUpdates enables the release feed poller.
	CheckUpdates bool `yaml:"check_updates"`

	Log LogConfig `yaml:"log"`
}

// LogConfig controls the rotating log sink.
type LogConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		StateDir:            `C:\ProgramData\PHN16Manager\State`,
		CycleThermalProfile: true,
		CheckUpdates:        false,
		Log: LogConfig{
			Path:       `C:\Logs\PHN16Manager.log`,
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
	}
}

// Load reads the configuration file at path. A missing file yields the
// defaults; a malformed file is an error so a typo cannot silently
// revert settings.
func Load(path string) (Config, error) {
	conf := Default()
	raw, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return conf, nil
	}
	if err != nil {
		return conf, errors.Wrap(err, "cannot read configuration file")
	}
	if err := yaml.Unmarshal(raw, &conf); err != nil {
		return conf, errors.Wrap(err, "cannot parse configuration file")
	}
	if conf.StateDir == "" {
		return conf, errors.New("state_dir cannot be empty")
	}
	return conf, nil
}
