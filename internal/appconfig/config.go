package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/tabedit/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Backend       BackendConfig `mapstructure:"backend" yaml:"backend"`
	Session       SessionConfig `mapstructure:"session" yaml:"session"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// BackendConfig locates the external store service and bounds its calls.
type BackendConfig struct {
	Binary         string            `mapstructure:"binary" yaml:"binary"`
	Args           []string          `mapstructure:"args" yaml:"args"`
	Env            map[string]string `mapstructure:"env" yaml:"env"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	// Mode is "exec" (one process per command) or "worker" (one long-lived process).
	Mode    string `mapstructure:"mode" yaml:"mode"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// SessionConfig controls editing behavior.
type SessionConfig struct {
	HistoryMax int `mapstructure:"history_max" yaml:"history_max"`
	// Renderer is "html" or "marker".
	Renderer   string `mapstructure:"renderer" yaml:"renderer"`
	TitleWidth int    `mapstructure:"title_width" yaml:"title_width"`
}

// LoggingConfig controls audit logging behavior.
type LoggingConfig struct {
	DisableAuditTrails bool `mapstructure:"disable_audit_trails" yaml:"disable_audit_trails"`
}

// DefaultConfig returns a config with sensible defaults. The default
// backend is the bundled store mock.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Backend: BackendConfig{
			Binary:         "tabedit-store",
			Args:           []string{},
			Env:            map[string]string{},
			TimeoutSeconds: int(schema.DefaultCommandTimeout.Seconds()),
			Mode:           "exec",
			DataDir:        filepath.Join(home, ".tabedit", "store"),
		},
		Session: SessionConfig{
			HistoryMax: schema.DefaultHistoryMax,
			Renderer:   "marker",
			TitleWidth: 24,
		},
		Logging: LoggingConfig{
			DisableAuditTrails: false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tabedit", "config.yaml"), nil
}
