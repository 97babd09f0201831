/*
Package config loads the node's YAML configuration file, the same way
cmd/warren's apply command parses resource YAML: os.ReadFile followed by
yaml.Unmarshal into a plain struct.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the node's full on-disk configuration.
type Config struct {
	DataDir    string `yaml:"dataDir"`
	ListenAddr string `yaml:"listenAddr"`
	DevMode    bool   `yaml:"devMode"`

	MaxContentLen   int `yaml:"maxContentLen"`
	MaxRequestSize  int `yaml:"maxRequestSize"`
	MaxResponseSize int `yaml:"maxResponseSize"`

	LogLevel string `yaml:"logLevel"`
	LogJSON  bool   `yaml:"logJSON"`
}

// Defaults returns the configuration a node starts with when no file is
// given.
func Defaults() Config {
	return Config{
		DataDir:         "./data",
		ListenAddr:      "0.0.0.0:4433",
		MaxContentLen:   1_000_000,
		MaxRequestSize:  1 << 16,
		MaxResponseSize: 2 * 1_000_000 * 2,
		LogLevel:        "info",
	}
}

// Load reads and parses a YAML configuration file, starting from Defaults
// so an omitted field keeps its default rather than zeroing out.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// HeadCheckInterval returns how often the followee head checker wakes,
// shorter in dev mode for faster iteration.
func (c Config) HeadCheckInterval() time.Duration {
	if c.DevMode {
		return 10 * time.Second
	}
	return 60 * time.Second
}

// EventsDBPath is the bbolt file path for the event database.
func (c Config) EventsDBPath() string {
	return filepath.Join(c.DataDir, "events.db")
}
