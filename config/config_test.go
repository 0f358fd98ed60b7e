package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tailored-agentic-units/kernelhub/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	if cfg.Tracker.SettleDelay.Std() != 500*time.Millisecond {
		t.Errorf("got SettleDelay %v, want 500ms", cfg.Tracker.SettleDelay)
	}
	if cfg.Tracker.CorrelationLimit != 0 {
		t.Errorf("got CorrelationLimit %d, want 0", cfg.Tracker.CorrelationLimit)
	}
	if cfg.Tracker.Observer != "slog,prometheus" {
		t.Errorf("got Observer %q, want slog,prometheus", cfg.Tracker.Observer)
	}
	if cfg.Jupyter.Logger == nil || cfg.Server.Logger == nil {
		t.Error("default loggers are nil")
	}
}

func TestTrackerConfig_Merge(t *testing.T) {
	cfg := config.DefaultTrackerConfig()

	cfg.Merge(&config.TrackerConfig{
		SettleDelay:      config.Duration(time.Second),
		CorrelationLimit: 128,
	})

	if cfg.SettleDelay.Std() != time.Second {
		t.Errorf("got SettleDelay %v, want 1s", cfg.SettleDelay)
	}
	if cfg.CorrelationLimit != 128 {
		t.Errorf("got CorrelationLimit %d, want 128", cfg.CorrelationLimit)
	}
	if cfg.Observer != "slog" {
		t.Errorf("got Observer %q, want slog (preserved default)", cfg.Observer)
	}
}

func TestConfig_Merge_ZeroValuesPreserveDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	original := cfg

	cfg.Merge(&config.Config{})

	if cfg.Tracker != original.Tracker {
		t.Errorf("tracker changed: %+v, want %+v", cfg.Tracker, original.Tracker)
	}
	if cfg.Jupyter.URL != original.Jupyter.URL || cfg.Server.Addr != original.Server.Addr {
		t.Error("zero-valued merge overwrote defaults")
	}
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernelhub.json")

	content := `{
		"tracker": {"settle_delay": "250ms", "correlation_limit": 64},
		"jupyter": {"url": "http://jupyter:8888", "token": "secret"},
		"server": {"addr": ":9000"}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Tracker.SettleDelay.Std() != 250*time.Millisecond {
		t.Errorf("got SettleDelay %v, want 250ms", cfg.Tracker.SettleDelay)
	}
	if cfg.Tracker.CorrelationLimit != 64 {
		t.Errorf("got CorrelationLimit %d, want 64", cfg.Tracker.CorrelationLimit)
	}
	if cfg.Jupyter.URL != "http://jupyter:8888" || cfg.Jupyter.Token != "secret" {
		t.Errorf("got jupyter %+v", cfg.Jupyter)
	}
	if cfg.Jupyter.PollInterval.Std() != 2*time.Second {
		t.Errorf("got PollInterval %v, want default 2s", cfg.Jupyter.PollInterval)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("got Addr %q, want :9000", cfg.Server.Addr)
	}
	if cfg.Server.MetricsPath != "/metrics" {
		t.Errorf("got MetricsPath %q, want /metrics", cfg.Server.MetricsPath)
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernelhub.yaml")

	content := "tracker:\n  settle_delay: 2s\n  observer: noop\njupyter:\n  poll_interval: 5s\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Tracker.SettleDelay.Std() != 2*time.Second {
		t.Errorf("got SettleDelay %v, want 2s", cfg.Tracker.SettleDelay)
	}
	if cfg.Tracker.Observer != "noop" {
		t.Errorf("got Observer %q, want noop", cfg.Tracker.Observer)
	}
	if cfg.Jupyter.PollInterval.Std() != 5*time.Second {
		t.Errorf("got PollInterval %v, want 5s", cfg.Jupyter.PollInterval)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := config.Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Load of missing file succeeded")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"tracker": {"settle_delay": "soon"}}`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := config.Load(bad); err == nil {
		t.Error("Load accepted an invalid duration")
	}
}

func TestDuration_JSONRoundTrip(t *testing.T) {
	d := config.Duration(1500 * time.Millisecond)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	if string(data) != `"1.5s"` {
		t.Errorf("Marshal = %s, want \"1.5s\"", data)
	}

	var back config.Duration
	if err := json.Unmarshal([]byte(`1000000`), &back); err != nil {
		t.Fatalf("Unmarshal number error = %v", err)
	}
	if back.Std() != time.Millisecond {
		t.Errorf("numeric duration = %v, want 1ms", back)
	}
}
