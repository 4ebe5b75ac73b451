package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	configDir  = ".config/arbor"
	configFile = "config.json"
)

// Load reads the user config from the default location. The returned
// value is the user layer only; pass it to Merge to resolve defaults.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads the user config from a specific path.
// If path is empty, uses ~/.config/arbor/config.json. A missing file is
// not an error: Merge applied to the empty layer yields the defaults.
func LoadFrom(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
		if path == "" {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ExpandPath expands ~ to home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDir, configFile)
}
