// Package config provides hierarchical configuration loading for PromptForge.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the PromptForge console.
type Config struct {
	Server   Server   `yaml:"server"`
	Backend  Backend  `yaml:"backend"`
	Cache    Cache    `yaml:"cache"`
	NATS     NATS     `yaml:"nats"`
	Postgres Postgres `yaml:"postgres"`
	Logging  Logging  `yaml:"logging"`
	OTel     OTel     `yaml:"otel"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port          string  `yaml:"port"`
	CORSOrigin    string  `yaml:"cors_origin"`
	EvaluateRate  float64 `yaml:"evaluate_rate"` // requests per second per client; 0 disables limiting
	EvaluateBurst int     `yaml:"evaluate_burst"`
}

// Backend holds the connection settings of the prompt backend that owns
// personas, fragments and compositions.
type Backend struct {
	URL          string        `yaml:"url"`
	Timeout      time.Duration `yaml:"timeout"`       // 0 disables the client timeout
	EvaluatePath string        `yaml:"evaluate_path"` // test article endpoint

	// Circuit breaker: open after BreakerFailures consecutive outages and
	// fail fast for BreakerTimeout. Off by default (0 failures).
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

// Cache holds list snapshot cache configuration.
type Cache struct {
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"`
	TTL         time.Duration `yaml:"ttl"` // 0 disables caching
	// L2Bucket names the NATS KV bucket shared between instances. It is
	// used only when NATS is configured; empty keeps the cache in-process.
	L2Bucket string        `yaml:"l2_bucket"`
	L1Expire time.Duration `yaml:"l1_expire"` // cap on L1 entry lifetime when L2 is active
}

// NATS holds event publishing configuration. An empty URL disables it.
type NATS struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Postgres holds the activation journal database configuration. An empty
// DSN disables the journal.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// OTel holds OpenTelemetry exporter configuration. An empty endpoint
// disables export.
type OTel struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:          "8090",
			CORSOrigin:    "http://localhost:3000",
			EvaluateRate:  0.5,
			EvaluateBurst: 5,
		},
		Backend: Backend{
			URL:             "http://localhost:8000",
			Timeout:         10 * time.Second,
			EvaluatePath:    "/api/test-article-simple",
			BreakerFailures: 0,
			BreakerTimeout:  30 * time.Second,
		},
		Cache: Cache{
			L1MaxSizeMB: 16,
			TTL:         30 * time.Second,
			L2Bucket:    "promptforge_lists",
			L1Expire:    5 * time.Second,
		},
		NATS: NATS{
			SubjectPrefix: "prompts",
		},
		Postgres: Postgres{
			MaxConns:        5,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "promptforge",
		},
		OTel: OTel{
			ServiceName: "promptforge",
			Insecure:    true,
		},
	}
}
