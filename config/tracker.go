package config

import "time"

// TrackerConfig configures the kernel Manager.
type TrackerConfig struct {
	// SettleDelay is how long the manager waits after a kernel appears before
	// attaching to its channels. Some transports drop status messages sent
	// before they are fully ready; the delay is a heuristic, not a guarantee.
	SettleDelay Duration `json:"settle_delay" yaml:"settle_delay"`

	// CorrelationLimit bounds the request-to-execution table. Zero keeps every
	// entry for the life of the process.
	CorrelationLimit int `json:"correlation_limit" yaml:"correlation_limit"`

	// Observer names the observability.Observer to emit events to.
	Observer string `json:"observer" yaml:"observer"`
}

// DefaultTrackerConfig returns a TrackerConfig with sensible defaults.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		SettleDelay:      Duration(500 * time.Millisecond),
		CorrelationLimit: 0,
		Observer:         "slog",
	}
}

func (c *TrackerConfig) Merge(source *TrackerConfig) {
	if source.SettleDelay > 0 {
		c.SettleDelay = source.SettleDelay
	}

	if source.CorrelationLimit > 0 {
		c.CorrelationLimit = source.CorrelationLimit
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
