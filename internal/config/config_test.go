package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Alerts.RefreshInterval != 30*time.Second {
		t.Fatalf("expected 30s refresh, got %s", cfg.Alerts.RefreshInterval)
	}
	if cfg.Server.BasePath != "/v0" {
		t.Fatalf("unexpected base path %q", cfg.Server.BasePath)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected default level, got %q", cfg.Logging.Level)
	}
}

func TestFromYAMLOverridesAndKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	data := []byte("alerts:\n  refresh_interval: 5s\nlogging:\n  level: debug\n")
	if err := os.WriteFile(filepath.Join(dir, "teamload.yml"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Alerts.RefreshInterval != 5*time.Second {
		t.Fatalf("expected 5s, got %s", cfg.Alerts.RefreshInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug, got %q", cfg.Logging.Level)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Fatalf("expected default addr kept, got %q", cfg.Server.Addr)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"zero interval": "alerts:\n  refresh_interval: 0s\n",
		"bad level":     "logging:\n  level: loud\n",
		"base path":     "server:\n  base_path: v0\n",
		"bad yaml":      "alerts: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := FromYAML([]byte(body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
