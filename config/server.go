package config

import (
	"log/slog"
	"time"
)

// ServerConfig configures the RPC and metrics HTTP listener.
type ServerConfig struct {
	Addr            string       `json:"addr" yaml:"addr"`
	MetricsPath     string       `json:"metrics_path" yaml:"metrics_path"`
	ShutdownTimeout Duration     `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	Logger          *slog.Logger `json:"-" yaml:"-"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            "127.0.0.1:8765",
		MetricsPath:     "/metrics",
		ShutdownTimeout: Duration(10 * time.Second),
		Logger:          slog.Default(),
	}
}

func (c *ServerConfig) Merge(source *ServerConfig) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}

	if source.MetricsPath != "" {
		c.MetricsPath = source.MetricsPath
	}

	if source.ShutdownTimeout > 0 {
		c.ShutdownTimeout = source.ShutdownTimeout
	}

	if source.Logger != nil {
		c.Logger = source.Logger
	}
}
