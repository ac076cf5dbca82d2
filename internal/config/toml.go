// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Endpoints EndpointsConfig `toml:"endpoints"`
	Session   SessionConfig   `toml:"session"`
}

// EndpointsConfig maps remote endpoint settings. Per-endpoint URLs win over
// URLs derived from BaseURL.
type EndpointsConfig struct {
	BaseURL     *string `toml:"base-url"`
	Technicians *string `toml:"technicians"`
	Clock       *string `toml:"clock"`
	Status      *string `toml:"status"`
	Mileage     *string `toml:"mileage"`
	History     *string `toml:"history"`
	Edit        *string `toml:"edit"`
}

// SessionConfig maps clock session settings.
type SessionConfig struct {
	Debounce       *string `toml:"debounce"`
	DebounceMs     *int    `toml:"debounce-ms"`
	SuccessToastMs *int    `toml:"success-toast-ms"`
	ErrorToastMs   *int    `toml:"error-toast-ms"`
	HistoryDays    *int    `toml:"history-days"`
	TimeoutMs      *int    `toml:"timeout-ms"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
