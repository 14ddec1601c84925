package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lana-info/llm-council/internal/domain/tier"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "council.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
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
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
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
	setString(&cfg.Server.Port, "LLM_COUNCIL_PORT")
	setString(&cfg.Server.CORSOrigin, "LLM_COUNCIL_CORS_ORIGIN")
	setString(&cfg.Router.Provider, "LLM_COUNCIL_ROUTER_PROVIDER")
	setString(&cfg.Router.BaseURL, "LLM_COUNCIL_ROUTER_BASE_URL")
	setString(&cfg.Router.Referer, "LLM_COUNCIL_ROUTER_REFERER")
	setString(&cfg.Router.Title, "LLM_COUNCIL_ROUTER_TITLE")
	setString(&cfg.Council.DefaultTier, "LLM_COUNCIL_DEFAULT_TIER")
	setString(&cfg.Council.Chairman, "LLM_COUNCIL_CHAIRMAN")
	setString(&cfg.Council.Normalize, "LLM_COUNCIL_NORMALIZE")
	setString(&cfg.Council.NormalizerModel, "LLM_COUNCIL_NORMALIZER_MODEL")
	setInt(&cfg.Council.MaxConcurrent, "LLM_COUNCIL_MAX_CONCURRENT")
	setInt(&cfg.Council.MaxReviewers, "LLM_COUNCIL_MAX_REVIEWERS")
	setFloat64(&cfg.Council.VerifyThreshold, "LLM_COUNCIL_VERIFY_THRESHOLD")
	setBool(&cfg.Council.ExcludeSelfVotes, "LLM_COUNCIL_EXCLUDE_SELF_VOTES")
	loadPoolEnv(cfg)
	setString(&cfg.Skills.Dir, "LLM_COUNCIL_SKILLS_DIR")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "LLM_COUNCIL_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "LLM_COUNCIL_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "LLM_COUNCIL_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "LLM_COUNCIL_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "LLM_COUNCIL_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.Cache.Enabled, "LLM_COUNCIL_CACHE_ENABLED")
	setInt64(&cfg.Cache.L1MaxSizeMB, "LLM_COUNCIL_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "LLM_COUNCIL_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.TTL, "LLM_COUNCIL_CACHE_TTL")
	setString(&cfg.Logging.Level, "LLM_COUNCIL_LOG_LEVEL")
	setString(&cfg.Logging.Service, "LLM_COUNCIL_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "LLM_COUNCIL_LOG_ASYNC")
	setInt(&cfg.Breaker.FailureThreshold, "LLM_COUNCIL_BREAKER_FAILURES")
	setInt(&cfg.Breaker.SuccessThreshold, "LLM_COUNCIL_BREAKER_SUCCESSES")
	setDuration(&cfg.Breaker.Timeout, "LLM_COUNCIL_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "LLM_COUNCIL_RATE_RPS")
	setInt(&cfg.Rate.Burst, "LLM_COUNCIL_RATE_BURST")
	setBool(&cfg.MCP.Enabled, "LLM_COUNCIL_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "LLM_COUNCIL_MCP_ADDR")
	setBool(&cfg.Telemetry.Enabled, "LLM_COUNCIL_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "LLM_COUNCIL_OTEL_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "LLM_COUNCIL_OTEL_INSECURE")
	setFloat64(&cfg.Telemetry.SampleRatio, "LLM_COUNCIL_OTEL_SAMPLE_RATIO")
	setBool(&cfg.Auth.Enabled, "LLM_COUNCIL_AUTH_ENABLED")
	if v := os.Getenv("LLM_COUNCIL_API_KEY_HASHES"); v != "" {
		var hashes []string
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				hashes = append(hashes, h)
			}
		}
		if len(hashes) > 0 {
			cfg.Auth.KeyHashes = hashes
		}
	}
}

// loadPoolEnv overlays model pool overrides. LLM_COUNCIL_MODELS replaces
// every tier's pool; LLM_COUNCIL_MODELS_<TIER> (e.g.
// LLM_COUNCIL_MODELS_QUICK="openai/gpt-4o-mini,google/gemini-2.0-flash-001")
// then overrides a single tier.
func loadPoolEnv(cfg *Config) {
	if models := splitModels(os.Getenv("LLM_COUNCIL_MODELS")); len(models) > 0 {
		if cfg.Council.Pools == nil {
			cfg.Council.Pools = make(map[string][]string)
		}
		for _, t := range tier.All() {
			cfg.Council.Pools[string(t)] = append([]string(nil), models...)
		}
	}
	for _, t := range tier.All() {
		key := "LLM_COUNCIL_MODELS_" + strings.ToUpper(string(t))
		models := splitModels(os.Getenv(key))
		if len(models) == 0 {
			continue
		}
		if cfg.Council.Pools == nil {
			cfg.Council.Pools = make(map[string][]string)
		}
		cfg.Council.Pools[string(t)] = models
	}
}

// splitModels parses a comma-separated model list, dropping empty entries.
func splitModels(v string) []string {
	if v == "" {
		return nil
	}
	var models []string
	for _, m := range strings.Split(v, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}

// validate checks that required fields are set and enumerations are sane.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Router.Provider {
	case "openrouter", "native":
	default:
		return fmt.Errorf("router.provider %q must be openrouter or native", cfg.Router.Provider)
	}
	if cfg.Router.Provider == "openrouter" && cfg.Router.BaseURL == "" {
		return errors.New("router.base_url is required for the openrouter provider")
	}
	if _, err := tier.Parse(cfg.Council.DefaultTier); err != nil {
		return fmt.Errorf("council.default_tier: %w", err)
	}
	switch cfg.Council.Normalize {
	case "off", "always", "auto":
	default:
		return fmt.Errorf("council.normalize %q must be off, always or auto", cfg.Council.Normalize)
	}
	if cfg.Council.MaxConcurrent < 1 {
		return errors.New("council.max_concurrent must be >= 1")
	}
	if cfg.Council.VerifyThreshold < 0 || cfg.Council.VerifyThreshold > 1 {
		return errors.New("council.verify_threshold must be in [0,1]")
	}
	for name, pool := range cfg.Council.Pools {
		if _, err := tier.Parse(name); err != nil {
			return fmt.Errorf("council.pools: %w", err)
		}
		if len(pool) == 0 {
			return fmt.Errorf("council.pools.%s must not be empty", name)
		}
	}
	if cfg.Postgres.DSN != "" && cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.FailureThreshold < 1 {
		return errors.New("breaker.failure_threshold must be >= 1")
	}
	if cfg.Breaker.SuccessThreshold < 1 {
		return errors.New("breaker.success_threshold must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Auth.Enabled && len(cfg.Auth.KeyHashes) == 0 {
		return errors.New("auth.key_hashes is required when auth is enabled")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
