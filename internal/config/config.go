// Package config loads the bodystats service configuration from a JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// MQTTConfig configures the optional MQTT bridge.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. "tcp://localhost:1883". Empty disables the bridge.
	Broker       string `json:"broker"`
	ClientID     string `json:"client_id"`
	UpdatesTopic string `json:"updates_topic"`
	StatsTopic   string `json:"stats_topic"`
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// Config holds all service configuration values.
type Config struct {
	ListenAddr string `json:"listen_addr"`
	DBPath     string `json:"db_path"`

	// MaxMinima is the number of most recent local minima used for statistics.
	MaxMinima int `json:"max_minima"`

	// HistoryLimit bounds each limb history; 0 keeps every sample.
	HistoryLimit int `json:"history_limit"`

	MQTT MQTTConfig `json:"mqtt"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ListenAddr:   ":8080",
		DBPath:       "~/.bodystats/bodystats.db",
		MaxMinima:    8,
		HistoryLimit: 0,
		MQTT: MQTTConfig{
			ClientID:     "bodystats",
			UpdatesTopic: "bodystats/updates",
			StatsTopic:   "bodystats/stats",
		},
	}
}

// Load reads a JSON configuration file. Fields omitted from the file keep
// their default values, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.MaxMinima < 1 {
		return fmt.Errorf("%w: max_minima must be at least 1, got %d", ErrInvalidConfig, c.MaxMinima)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("%w: history_limit must be non-negative, got %d", ErrInvalidConfig, c.HistoryLimit)
	}
	// A local minimum needs both neighbours.
	if c.HistoryLimit > 0 && c.HistoryLimit < 3 {
		return fmt.Errorf("%w: history_limit must be 0 or at least 3, got %d", ErrInvalidConfig, c.HistoryLimit)
	}
	if c.MQTT.Enabled() && (c.MQTT.UpdatesTopic == "" || c.MQTT.StatsTopic == "") {
		return fmt.Errorf("%w: mqtt topics must be set when a broker is configured", ErrInvalidConfig)
	}
	return nil
}

// ResolvedDBPath returns DBPath with a leading "~" expanded to the home directory.
func (c *Config) ResolvedDBPath() (string, error) {
	return expandHome(c.DBPath)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
