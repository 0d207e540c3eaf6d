package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName is the application name used for configuration directories.
const AppName = "chime"

// DefaultPath returns the default configuration file path following XDG spec.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load builds a configuration from defaults, the YAML file at path (if it
// exists) and environment overrides, in that order.
func Load(path string) (*RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadFromEnv()
	return cfg, nil
}

// mergeFile overlays the YAML document at path onto c. A missing file is not
// an error.
func (c *RuntimeConfig) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Marshal renders c as YAML.
func (c *RuntimeConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
