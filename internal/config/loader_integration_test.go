package config

import (
	"os"
	"path/filepath"
	"testing"
)

// Integration tests that exercise the full LoadFrom pipeline:
// defaults < YAML < environment variables.

func TestLoadFrom_FullHierarchy(t *testing.T) {
	// YAML sets port=9090, env overrides to 7070. Env must win.
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
server:
  port: "9090"
backend:
  url: "http://yaml-backend:8000"
logging:
  level: "debug"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PROMPTFORGE_PORT", "7070")
	t.Setenv("PROMPTFORGE_LOG_LEVEL", "warn")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("env should override YAML: got port %q, want 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env should override YAML: got level %q, want warn", cfg.Logging.Level)
	}
	if cfg.Backend.URL != "http://yaml-backend:8000" {
		t.Errorf("YAML should override defaults: got backend %q", cfg.Backend.URL)
	}
}

func TestLoadFrom_MissingYAMLFile(t *testing.T) {
	// Non-existent YAML => pure defaults, no error.
	cfg, err := LoadFrom("/nonexistent/path/to/config.yaml")
	if err != nil {
		t.Fatalf("missing YAML should not error, got %v", err)
	}

	if cfg.Logging.Level == "" {
		t.Error("expected a default log level")
	}
}

func TestLoadFrom_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte(`{{{invalid yaml`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(yamlPath)
	if err == nil {
		t.Fatal("expected error for malformed YAML, got nil")
	}
}

func TestLoadFrom_ValidationAfterOverride(t *testing.T) {
	// YAML sets the backend URL to empty string => validation error.
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
backend:
  url: ""
`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PROMPTFORGE_BACKEND_URL", "")

	_, err := LoadFrom(yamlPath)
	if err == nil {
		t.Fatal("expected validation error for empty backend URL, got nil")
	}
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
cache:
  l1_max_size_mb: 64
`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PROMPTFORGE_CONFIG", yamlPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.L1MaxSizeMB != 64 {
		t.Errorf("got l1_max_size_mb %d, want 64", cfg.Cache.L1MaxSizeMB)
	}
}
