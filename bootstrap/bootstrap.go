// Package bootstrap lays out a self-contained tabedit home: a config file,
// a record directory for the store mock and a tabedit-store link that
// invokes it.
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pkt.systems/tabedit/internal/appconfig"
)

// StoreLinkName is the argv0 under which tabedit acts as the store mock.
const StoreLinkName = "tabedit-store"

// ConfigOverride sets a dotted config path, e.g. backend.mode, to Value.
type ConfigOverride struct {
	Path  string
	Value any
}

// Options controls optional bootstrap behaviors.
type Options struct {
	Overrides []ConfigOverride
	// Executable is the tabedit binary the store link points at. Defaults to
	// the running executable.
	Executable string
	// SkipStoreLink leaves backend.binary untouched.
	SkipStoreLink bool
}

// Paths reports where bootstrap wrote its outputs.
type Paths struct {
	ConfigPath string
	DataDir    string
	BinPath    string
}

// WriteBootstrap writes config.yaml, creates the store data directory and
// links bin/tabedit-store under outputDir.
func WriteBootstrap(outputDir string, overwrite bool, opts Options) (Paths, error) {
	if strings.TrimSpace(outputDir) == "" {
		return Paths{}, errors.New("output directory is required")
	}
	rootDir, err := filepath.Abs(outputDir)
	if err != nil {
		rootDir = outputDir
	}
	paths := Paths{
		ConfigPath: filepath.Join(rootDir, "config.yaml"),
		DataDir:    filepath.Join(rootDir, "store"),
	}
	if !overwrite {
		if _, err := os.Stat(paths.ConfigPath); err == nil {
			return Paths{}, fmt.Errorf("file already exists: %s", paths.ConfigPath)
		}
	}

	cfg, err := appconfig.DefaultConfig()
	if err != nil {
		return Paths{}, err
	}
	cfg.Backend.DataDir = paths.DataDir
	if !opts.SkipStoreLink {
		binPath, err := linkStore(rootDir, opts.Executable, overwrite)
		if err != nil {
			return Paths{}, err
		}
		paths.BinPath = binPath
		cfg.Backend.Binary = binPath
	}
	cfg, err = applyOverrides(cfg, opts.Overrides)
	if err != nil {
		return Paths{}, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		return Paths{}, err
	}
	if err := os.MkdirAll(paths.DataDir, 0o700); err != nil {
		return Paths{}, err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return Paths{}, err
	}
	if err := os.WriteFile(paths.ConfigPath, data, 0o600); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

func linkStore(rootDir, executable string, overwrite bool) (string, error) {
	if strings.TrimSpace(executable) == "" {
		self, err := os.Executable()
		if err != nil {
			return "", err
		}
		executable = self
	}
	binDir := filepath.Join(rootDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return "", err
	}
	link := filepath.Join(binDir, StoreLinkName)
	if target, err := os.Readlink(link); err == nil {
		if target == executable {
			return link, nil
		}
		if !overwrite {
			return "", fmt.Errorf("file already exists: %s", link)
		}
		if err := os.Remove(link); err != nil {
			return "", err
		}
	} else if _, statErr := os.Lstat(link); statErr == nil {
		return "", fmt.Errorf("%s exists and is not a symlink", link)
	}
	if err := os.Symlink(executable, link); err != nil {
		return "", err
	}
	return link, nil
}

// ParseOverride parses "path=value". The value is decoded as YAML so
// numbers, booleans and lists keep their type.
func ParseOverride(assignment string) (ConfigOverride, error) {
	path, raw, ok := strings.Cut(assignment, "=")
	if !ok || strings.TrimSpace(path) == "" {
		return ConfigOverride{}, fmt.Errorf("config override %q must be path=value", assignment)
	}
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return ConfigOverride{}, fmt.Errorf("config override %q: %w", assignment, err)
	}
	if value == nil {
		value = ""
	}
	return ConfigOverride{Path: strings.TrimSpace(path), Value: value}, nil
}

func applyOverrides(cfg appconfig.Config, overrides []ConfigOverride) (appconfig.Config, error) {
	if len(overrides) == 0 {
		return cfg, nil
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, err
	}
	updated, err := applyOverridesToYAML(raw, overrides)
	if err != nil {
		return cfg, err
	}
	var next appconfig.Config
	if err := yaml.Unmarshal(updated, &next); err != nil {
		return cfg, err
	}
	return next, nil
}

func applyOverridesToYAML(configYAML []byte, overrides []ConfigOverride) ([]byte, error) {
	if len(overrides) == 0 {
		return configYAML, nil
	}
	var data map[string]any
	if err := yaml.Unmarshal(configYAML, &data); err != nil {
		return nil, err
	}
	for _, override := range overrides {
		if err := setOverrideValue(data, override.Path, override.Value); err != nil {
			return nil, err
		}
	}
	return yaml.Marshal(data)
}

func setOverrideValue(root map[string]any, path string, value any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("config override path is required")
	}
	parts := strings.Split(path, ".")
	node := root
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return fmt.Errorf("invalid config override path %q", path)
		}
		if i == len(parts)-1 {
			node[part] = value
			return nil
		}
		next, ok := node[part]
		if !ok || next == nil {
			child := map[string]any{}
			node[part] = child
			node = child
			continue
		}
		child, ok := toStringMap(next)
		if !ok {
			return fmt.Errorf("config override %q: %q is not a map", path, part)
		}
		node[part] = child
		node = child
	}
	return nil
}

func toStringMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			ks, ok := key.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}
