package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "promptforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("PROMPTFORGE_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PROMPTFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "PROMPTFORGE_CORS_ORIGIN")
	setFloat64(&cfg.Server.EvaluateRate, "PROMPTFORGE_EVALUATE_RATE")
	setInt(&cfg.Server.EvaluateBurst, "PROMPTFORGE_EVALUATE_BURST")

	// Backend
	setString(&cfg.Backend.URL, "PROMPTFORGE_BACKEND_URL")
	setDuration(&cfg.Backend.Timeout, "PROMPTFORGE_BACKEND_TIMEOUT")
	setString(&cfg.Backend.EvaluatePath, "PROMPTFORGE_EVALUATE_PATH")
	setInt(&cfg.Backend.BreakerFailures, "PROMPTFORGE_BREAKER_FAILURES")
	setDuration(&cfg.Backend.BreakerTimeout, "PROMPTFORGE_BREAKER_TIMEOUT")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "PROMPTFORGE_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "PROMPTFORGE_CACHE_TTL")
	setString(&cfg.Cache.L2Bucket, "PROMPTFORGE_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L1Expire, "PROMPTFORGE_CACHE_L1_EXPIRE")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.SubjectPrefix, "PROMPTFORGE_NATS_SUBJECT_PREFIX")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "PROMPTFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "PROMPTFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "PROMPTFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "PROMPTFORGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "PROMPTFORGE_PG_HEALTH_CHECK")

	setString(&cfg.Logging.Level, "PROMPTFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "PROMPTFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "PROMPTFORGE_LOG_ASYNC")

	// OpenTelemetry
	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTel.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTel.Insecure, "PROMPTFORGE_OTEL_INSECURE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.EvaluateRate < 0 {
		return errors.New("server.evaluate_rate must be >= 0")
	}
	if cfg.Backend.URL == "" {
		return errors.New("backend.url is required")
	}
	if u, err := url.Parse(cfg.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("backend.url must be an absolute URL")
	}
	if cfg.Backend.Timeout < 0 {
		return errors.New("backend.timeout must be >= 0")
	}
	if cfg.Backend.BreakerFailures < 0 {
		return errors.New("backend.breaker_failures must be >= 0")
	}
	if cfg.Backend.BreakerFailures > 0 && cfg.Backend.BreakerTimeout <= 0 {
		return errors.New("backend.breaker_timeout must be > 0")
	}
	if cfg.Cache.TTL < 0 {
		return errors.New("cache.ttl must be >= 0")
	}
	if cfg.Cache.L1Expire < 0 {
		return errors.New("cache.l1_expire must be >= 0")
	}
	if cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1")
	}
	if cfg.Postgres.DSN != "" && cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
