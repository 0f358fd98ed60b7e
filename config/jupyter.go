package config

import (
	"log/slog"
	"time"
)

// JupyterConfig configures the Jupyter Server client.
type JupyterConfig struct {
	// URL is the server base URL, e.g. http://127.0.0.1:8888.
	URL string `json:"url" yaml:"url"`

	// Token is sent as "Authorization: token <Token>" when set.
	Token string `json:"token" yaml:"token"`

	// PollInterval controls how often the kernel list is synchronized.
	PollInterval Duration `json:"poll_interval" yaml:"poll_interval"`

	// RequestTimeout bounds each REST call and websocket handshake.
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func DefaultJupyterConfig() JupyterConfig {
	return JupyterConfig{
		URL:            "http://127.0.0.1:8888",
		PollInterval:   Duration(2 * time.Second),
		RequestTimeout: Duration(10 * time.Second),
		Logger:         slog.Default(),
	}
}

func (c *JupyterConfig) Merge(source *JupyterConfig) {
	if source.URL != "" {
		c.URL = source.URL
	}

	if source.Token != "" {
		c.Token = source.Token
	}

	if source.PollInterval > 0 {
		c.PollInterval = source.PollInterval
	}

	if source.RequestTimeout > 0 {
		c.RequestTimeout = source.RequestTimeout
	}

	if source.Logger != nil {
		c.Logger = source.Logger
	}
}
