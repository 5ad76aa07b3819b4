package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8090" {
		t.Errorf("expected port 8090, got %s", cfg.Server.Port)
	}
	if cfg.Backend.URL != "http://localhost:8000" {
		t.Errorf("expected backend http://localhost:8000, got %s", cfg.Backend.URL)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("expected cache ttl 30s, got %v", cfg.Cache.TTL)
	}
	if cfg.NATS.URL != "" || cfg.Postgres.DSN != "" {
		t.Error("optional integrations should be disabled by default")
	}
	if cfg.Backend.BreakerFailures != 0 {
		t.Errorf("expected circuit breaker off by default, got %d failures", cfg.Backend.BreakerFailures)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
backend:
  url: "http://backend:8000"
  timeout: 3s
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Backend.URL != "http://backend:8000" {
		t.Errorf("expected backend URL override, got %s", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != 3*time.Second {
		t.Errorf("expected timeout 3s, got %v", cfg.Backend.Timeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.Backend.EvaluatePath != "/api/test-article-simple" {
		t.Errorf("expected default evaluate path, got %s", cfg.Backend.EvaluatePath)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte("server: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("PROMPTFORGE_PORT", "7070")
	t.Setenv("PROMPTFORGE_BACKEND_URL", "http://api:9000")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("PROMPTFORGE_PG_MAX_CONNS", "25")
	t.Setenv("PROMPTFORGE_LOG_LEVEL", "warn")
	t.Setenv("PROMPTFORGE_CACHE_TTL", "1m")
	t.Setenv("PROMPTFORGE_LOG_ASYNC", "true")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("PROMPTFORGE_EVALUATE_RATE", "2.5")
	t.Setenv("PROMPTFORGE_EVALUATE_BURST", "10")
	t.Setenv("PROMPTFORGE_CACHE_L2_BUCKET", "shared")
	t.Setenv("PROMPTFORGE_BREAKER_FAILURES", "3")

	loadEnv(&cfg)

	if cfg.Server.EvaluateRate != 2.5 || cfg.Server.EvaluateBurst != 10 {
		t.Errorf("expected evaluate limit 2.5/10, got %v/%d", cfg.Server.EvaluateRate, cfg.Server.EvaluateBurst)
	}

	if cfg.Cache.L2Bucket != "shared" {
		t.Errorf("expected l2 bucket override, got %s", cfg.Cache.L2Bucket)
	}
	if cfg.Backend.BreakerFailures != 3 {
		t.Errorf("expected breaker failures 3, got %d", cfg.Backend.BreakerFailures)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Backend.URL != "http://api:9000" {
		t.Errorf("expected backend override, got %s", cfg.Backend.URL)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Cache.TTL != time.Minute {
		t.Errorf("expected cache ttl 1m, got %v", cfg.Cache.TTL)
	}
	if !cfg.Logging.Async {
		t.Error("expected async logging")
	}
	if cfg.NATS.URL != "nats://nats:4222" {
		t.Errorf("expected NATS URL override, got %s", cfg.NATS.URL)
	}
}

func TestEnvOverrideIgnoresInvalid(t *testing.T) {
	cfg := Defaults()
	t.Setenv("PROMPTFORGE_CACHE_TTL", "soon")
	t.Setenv("PROMPTFORGE_PG_MAX_CONNS", "many")

	loadEnv(&cfg)

	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("invalid duration should be ignored, got %v", cfg.Cache.TTL)
	}
	if cfg.Postgres.MaxConns != 5 {
		t.Errorf("invalid int should be ignored, got %d", cfg.Postgres.MaxConns)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "negative evaluate rate",
			modify: func(c *Config) { c.Server.EvaluateRate = -1 },
			errMsg: "server.evaluate_rate must be >= 0",
		},
		{
			name:   "empty backend URL",
			modify: func(c *Config) { c.Backend.URL = "" },
			errMsg: "backend.url is required",
		},
		{
			name:   "relative backend URL",
			modify: func(c *Config) { c.Backend.URL = "localhost:8000/api" },
			errMsg: "backend.url must be an absolute URL",
		},
		{
			name:   "negative timeout",
			modify: func(c *Config) { c.Backend.Timeout = -time.Second },
			errMsg: "backend.timeout must be >= 0",
		},
		{
			name:   "negative breaker failures",
			modify: func(c *Config) { c.Backend.BreakerFailures = -1 },
			errMsg: "backend.breaker_failures must be >= 0",
		},
		{
			name: "breaker without timeout",
			modify: func(c *Config) {
				c.Backend.BreakerFailures = 5
				c.Backend.BreakerTimeout = 0
			},
			errMsg: "backend.breaker_timeout must be > 0",
		},
		{
			name:   "negative cache ttl",
			modify: func(c *Config) { c.Cache.TTL = -time.Second },
			errMsg: "cache.ttl must be >= 0",
		},
		{
			name:   "negative l1 expire",
			modify: func(c *Config) { c.Cache.L1Expire = -time.Second },
			errMsg: "cache.l1_expire must be >= 0",
		},
		{
			name:   "zero cache size",
			modify: func(c *Config) { c.Cache.L1MaxSizeMB = 0 },
			errMsg: "cache.l1_max_size_mb must be >= 1",
		},
		{
			name: "zero max_conns with DSN",
			modify: func(c *Config) {
				c.Postgres.DSN = "postgres://localhost/promptforge"
				c.Postgres.MaxConns = 0
			},
			errMsg: "postgres.max_conns must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}
