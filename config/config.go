package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the kernelhub binary.
type Config struct {
	Tracker TrackerConfig `json:"tracker" yaml:"tracker"`
	Jupyter JupyterConfig `json:"jupyter" yaml:"jupyter"`
	Server  ServerConfig  `json:"server" yaml:"server"`
}

// DefaultConfig returns a Config with defaults for every section. The binary
// serves metrics, so its tracker also reports to the "prometheus" observer
// registered at startup.
func DefaultConfig() Config {
	tracker := DefaultTrackerConfig()
	tracker.Observer = "slog,prometheus"

	return Config{
		Tracker: tracker,
		Jupyter: DefaultJupyterConfig(),
		Server:  DefaultServerConfig(),
	}
}

func (c *Config) Merge(source *Config) {
	c.Tracker.Merge(&source.Tracker)
	c.Jupyter.Merge(&source.Jupyter)
	c.Server.Merge(&source.Server)
}

// Load reads a JSON or YAML config file and merges it over DefaultConfig.
func Load(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
