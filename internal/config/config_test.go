package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "controller.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.ActivationThreshold != 10 {
		t.Errorf("activation threshold: got %d, want 10", cfg.Engine.ActivationThreshold)
	}
	if cfg.Controller.RetrainInterval != 300*time.Second {
		t.Errorf("retrain interval: got %v", cfg.Controller.RetrainInterval)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: sqlite
  db_path: /tmp/home.db
engine:
  train_window: 500
  breaker:
    max_failures: 3
    open_timeout: 10s
controller:
  retrain_interval: 1m
log:
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.DBPath != "/tmp/home.db" {
		t.Errorf("store: %+v", cfg.Store)
	}
	if cfg.Engine.TrainWindow != 500 {
		t.Errorf("train window: got %d", cfg.Engine.TrainWindow)
	}
	if cfg.Engine.Breaker.MaxFailures != 3 || cfg.Engine.Breaker.OpenTimeout != 10*time.Second {
		t.Errorf("breaker: %+v", cfg.Engine.Breaker)
	}
	if cfg.Controller.RetrainInterval != time.Minute {
		t.Errorf("retrain interval: got %v", cfg.Controller.RetrainInterval)
	}
	// untouched keys keep their defaults
	if cfg.Engine.MaxDepth != 5 {
		t.Errorf("max depth: got %d", cfg.Engine.MaxDepth)
	}
	if cfg.Store.HistoryPath != "sensor_history.json" {
		t.Errorf("history path: got %q", cfg.Store.HistoryPath)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SMARTHOME_HISTORY_PATH", "/var/lib/home/history.json")
	t.Setenv("SMARTHOME_RETRAIN_INTERVAL", "45s")
	t.Setenv("SMARTHOME_ACTIVATION_THRESHOLD", "20")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.HistoryPath != "/var/lib/home/history.json" {
		t.Errorf("history path: got %q", cfg.Store.HistoryPath)
	}
	if cfg.Controller.RetrainInterval != 45*time.Second {
		t.Errorf("retrain interval: got %v", cfg.Controller.RetrainInterval)
	}
	if cfg.Engine.ActivationThreshold != 20 {
		t.Errorf("activation threshold: got %d", cfg.Engine.ActivationThreshold)
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("SMARTHOME_RETRAIN_INTERVAL", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unparsable duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "engine: [not, a, map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad-backend", func(c *Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"file-without-path", func(c *Config) { c.Store.HistoryPath = "" }, "history_path"},
		{"sqlite-without-path", func(c *Config) { c.Store.Backend = BackendSQLite; c.Store.DBPath = "" }, "db_path"},
		{"zero-threshold", func(c *Config) { c.Engine.ActivationThreshold = 0 }, "activation_threshold"},
		{"zero-depth", func(c *Config) { c.Engine.MaxDepth = 0 }, "max_depth"},
		{"agreement-range", func(c *Config) { c.Engine.MinAgreement = 1.5 }, "min_agreement"},
		{"zero-interval", func(c *Config) { c.Controller.RetrainInterval = 0 }, "retrain_interval"},
		{"bad-format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"badger-without-dir", func(c *Config) { c.Store.Backend = BackendBadger; c.Store.BadgerDir = "" }, "store.badger_dir"},
		{"bad-metrics-addr", func(c *Config) { c.Metrics.Addr = "not an address" }, "metrics.addr"},
		{"zero-breaker", func(c *Config) { c.Engine.Breaker.MaxFailures = 0 }, "engine.breaker.max_failures"},
		{"bad-level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Engine.MaxDepth = 0
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"engine.max_depth", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidateAcceptsMetricsAddr(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Addr = ":9090"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SMARTHOME_BADGER_DIR=/data/history.badger\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("SMARTHOME_BADGER_DIR") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.BadgerDir != "/data/history.badger" {
		t.Errorf("badger dir: got %q", cfg.Store.BadgerDir)
	}
}
