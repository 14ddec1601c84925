// Package config provides hierarchical configuration loading for the council.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the council service.
type Config struct {
	Server    Server    `yaml:"server"`
	Router    Router    `yaml:"router"`
	Council   Council   `yaml:"council"`
	Skills    Skills    `yaml:"skills"`
	Postgres  Postgres  `yaml:"postgres"`
	NATS      NATS      `yaml:"nats"`
	Cache     Cache     `yaml:"cache"`
	Logging   Logging   `yaml:"logging"`
	Breaker   Breaker   `yaml:"breaker"`
	Rate      Rate      `yaml:"rate"`
	MCP       MCP       `yaml:"mcp"`
	Telemetry Telemetry `yaml:"telemetry"`
	Auth      Auth      `yaml:"auth"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Router holds model gateway configuration. Provider selects how council
// calls reach the upstream models: "openrouter" sends everything through
// one OpenRouter-compatible endpoint, "native" uses the per-provider SDKs.
type Router struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Referer  string `yaml:"referer"`
	Title    string `yaml:"title"`
}

// Council holds deliberation pipeline configuration.
type Council struct {
	DefaultTier      string              `yaml:"default_tier"`
	Chairman         string              `yaml:"chairman"`  // aggregator override; empty = per-tier default
	Normalize        string              `yaml:"normalize"` // "off" | "always" | "auto"
	NormalizerModel  string              `yaml:"normalizer_model"`
	MaxConcurrent    int                 `yaml:"max_concurrent"`
	MaxReviewers     int                 `yaml:"max_reviewers"` // 0 = every surviving model reviews
	VerifyThreshold  float64             `yaml:"verify_threshold"`
	ExcludeSelfVotes bool                `yaml:"exclude_self_votes"`
	Pools            map[string][]string `yaml:"pools"` // per-tier model pool overrides
}

// Skills holds skill library configuration.
type Skills struct {
	Dir string `yaml:"dir"`
}

// Postgres holds PostgreSQL connection configuration for the deliberation
// history store. An empty DSN disables history persistence.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds NATS JetStream configuration. An empty URL disables event
// publishing and the L2 cache.
type NATS struct {
	URL string `yaml:"url"`
}

// Cache holds deliberation result cache configuration.
type Cache struct {
	Enabled     bool          `yaml:"enabled"`
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"`
	L2Bucket    string        `yaml:"l2_bucket"`
	TTL         time.Duration `yaml:"ttl"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration.
type Breaker struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// Rate holds rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// MCP holds Model Context Protocol server configuration.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Telemetry holds OpenTelemetry export configuration.
type Telemetry struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Auth holds API authentication configuration. When disabled, all HTTP
// requests pass through unauthenticated. KeyHashes are bcrypt hashes of
// accepted API keys; plaintext keys never appear in config.
type Auth struct {
	Enabled   bool     `yaml:"enabled"`
	KeyHashes []string `yaml:"key_hashes"`
}

// Defaults returns a Config with sensible default values for local use.
// Postgres and NATS default to disabled so the service runs standalone.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Router: Router{
			Provider: "openrouter",
			BaseURL:  "https://openrouter.ai/api/v1",
			Referer:  "https://github.com/lana-info/llm-council",
			Title:    "LLM Council",
		},
		Council: Council{
			DefaultTier:      "balanced",
			Normalize:        "off",
			NormalizerModel:  "openai/gpt-4o-mini",
			MaxConcurrent:    8,
			MaxReviewers:     0,
			VerifyThreshold:  0.7,
			ExcludeSelfVotes: true,
		},
		Skills: Skills{
			Dir: "skills",
		},
		Postgres: Postgres{
			MaxConns:        15,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Cache: Cache{
			Enabled:     true,
			L1MaxSizeMB: 64,
			L2Bucket:    "council_cache",
			TTL:         15 * time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "llm-council",
		},
		Breaker: Breaker{
			FailureThreshold: 5,
			SuccessThreshold: 1,
			Timeout:          60 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 10,
			Burst:             100,
		},
		MCP: MCP{
			Addr: ":3001",
		},
		Telemetry: Telemetry{
			Endpoint:    "localhost:4317",
			Insecure:    true,
			SampleRatio: 1.0,
		},
	}
}
