package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("backend.binary", cfg.Backend.Binary)
	v.SetDefault("backend.args", cfg.Backend.Args)
	v.SetDefault("backend.env", cfg.Backend.Env)
	v.SetDefault("backend.timeout_seconds", cfg.Backend.TimeoutSeconds)
	v.SetDefault("backend.mode", cfg.Backend.Mode)
	v.SetDefault("backend.data_dir", cfg.Backend.DataDir)
	v.SetDefault("session.history_max", cfg.Session.HistoryMax)
	v.SetDefault("session.renderer", cfg.Session.Renderer)
	v.SetDefault("session.title_width", cfg.Session.TitleWidth)
	v.SetDefault("logging.disable_audit_trails", cfg.Logging.DisableAuditTrails)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
		if !v.InConfig("backend.binary") {
			return Config{}, fmt.Errorf("backend.binary is required for config_version %d", CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Backend.Binary) == "" {
		return fmt.Errorf("backend.binary must not be empty")
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		return fmt.Errorf("backend.timeout_seconds must be positive")
	}
	switch cfg.Backend.Mode {
	case "exec", "worker":
	default:
		return fmt.Errorf("unsupported backend.mode %q (want exec or worker)", cfg.Backend.Mode)
	}
	switch cfg.Session.Renderer {
	case "html", "marker":
	default:
		return fmt.Errorf("unsupported session.renderer %q (want html or marker)", cfg.Session.Renderer)
	}
	if cfg.Session.HistoryMax < 0 {
		return fmt.Errorf("session.history_max must not be negative")
	}
	return nil
}

// Timeout returns the per-command store timeout.
func (c BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EnvList renders Env as KEY=VALUE pairs in key order.
func (c BackendConfig) EnvList() []string {
	keys := make([]string, 0, len(c.Env))
	for key := range c.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key+"="+c.Env[key])
	}
	return out
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Backend.Binary = expandEnv(cfg.Backend.Binary)
	cfg.Backend.DataDir = expandEnv(cfg.Backend.DataDir)
	for i, arg := range cfg.Backend.Args {
		cfg.Backend.Args[i] = expandEnv(arg)
	}
	for key, value := range cfg.Backend.Env {
		cfg.Backend.Env[key] = expandEnv(value)
	}
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
