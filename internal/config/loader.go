package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "interviewlab.yaml"

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
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
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
	setString(&cfg.Server.Port, "INTERVIEWLAB_PORT")
	setString(&cfg.Server.CORSOrigin, "INTERVIEWLAB_CORS_ORIGIN")
	setFloat(&cfg.Server.RateLimitRPS, "INTERVIEWLAB_RATE_LIMIT_RPS")
	setInt(&cfg.Server.RateLimitBurst, "INTERVIEWLAB_RATE_LIMIT_BURST")
	setDuration(&cfg.Server.IdempotencyTTL, "INTERVIEWLAB_IDEMPOTENCY_TTL")
	setString(&cfg.LLM.BaseURL, "INTERVIEWLAB_LLM_URL")
	setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.Model, "INTERVIEWLAB_LLM_MODEL")
	setDuration(&cfg.LLM.Timeout, "INTERVIEWLAB_LLM_TIMEOUT")
	setString(&cfg.Logging.Level, "INTERVIEWLAB_LOG_LEVEL")
	setString(&cfg.Logging.Service, "INTERVIEWLAB_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "INTERVIEWLAB_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "INTERVIEWLAB_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "INTERVIEWLAB_BREAKER_TIMEOUT")

	// Storage
	setString(&cfg.Storage.Dir, "INTERVIEWLAB_DATA_DIR")
	setString(&cfg.Storage.KV.URL, "NATS_URL")
	setString(&cfg.Storage.KV.Bucket, "INTERVIEWLAB_KV_BUCKET")
	setInt(&cfg.Storage.KV.FetchConcurrency, "INTERVIEWLAB_KV_FETCH_CONCURRENCY")
	setString(&cfg.Storage.Blob.APIURL, "INTERVIEWLAB_BLOB_API_URL")
	setString(&cfg.Storage.Blob.Token, "BLOB_READ_WRITE_TOKEN")
	setInt(&cfg.Storage.Blob.RetryAttempts, "INTERVIEWLAB_BLOB_RETRY_ATTEMPTS")
	setDuration(&cfg.Storage.Blob.RetryBaseDelay, "INTERVIEWLAB_BLOB_RETRY_DELAY")
	setInt(&cfg.Storage.Blob.FetchConcurrency, "INTERVIEWLAB_BLOB_FETCH_CONCURRENCY")
	setDuration(&cfg.Storage.Blob.EndpointTTL, "INTERVIEWLAB_BLOB_ENDPOINT_TTL")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "INTERVIEWLAB_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.PromptTTL, "INTERVIEWLAB_CACHE_PROMPT_TTL")
	setString(&cfg.Cache.L2Bucket, "INTERVIEWLAB_CACHE_L2_BUCKET")

	// Orchestrator
	setInt(&cfg.Orchestrator.DefaultMaxTurns, "INTERVIEWLAB_MAX_TURNS")
	setInt(&cfg.Orchestrator.InteractiveTurnCeiling, "INTERVIEWLAB_INTERACTIVE_CEILING")
	setDuration(&cfg.Orchestrator.SettingsTTL, "INTERVIEWLAB_SETTINGS_TTL")

	// Telemetry
	setBool(&cfg.Telemetry.Enabled, "INTERVIEWLAB_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Telemetry.ServiceName, "OTEL_SERVICE_NAME")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Storage.Dir == "" && cfg.Storage.KV.URL == "" && cfg.Storage.Blob.Token == "" {
		return errors.New("storage.dir is required when no remote backend is configured")
	}
	if cfg.Storage.KV.URL != "" && cfg.Storage.KV.Bucket == "" {
		return errors.New("storage.kv.bucket is required")
	}
	if cfg.Storage.Blob.RetryAttempts < 1 {
		return errors.New("storage.blob.retry_attempts must be >= 1")
	}
	if cfg.Storage.Blob.RetryBaseDelay <= 0 {
		return errors.New("storage.blob.retry_base_delay must be > 0")
	}
	if cfg.Storage.Blob.FetchConcurrency < 1 {
		return errors.New("storage.blob.fetch_concurrency must be >= 1")
	}
	if cfg.Storage.Blob.EndpointTTL < 0 {
		return errors.New("storage.blob.endpoint_ttl must be >= 0")
	}
	if cfg.Storage.KV.FetchConcurrency < 1 {
		return errors.New("storage.kv.fetch_concurrency must be >= 1")
	}
	if cfg.Orchestrator.DefaultMaxTurns < 1 {
		return errors.New("orchestrator.default_max_turns must be >= 1")
	}
	if cfg.Orchestrator.InteractiveTurnCeiling < 1 {
		return errors.New("orchestrator.interactive_turn_ceiling must be >= 1")
	}
	if cfg.Server.RateLimitRPS < 0 {
		return errors.New("server.rate_limit_rps must be >= 0")
	}
	if cfg.Server.RateLimitRPS > 0 && cfg.Server.RateLimitBurst < 1 {
		return errors.New("server.rate_limit_burst must be >= 1 when rate limiting is enabled")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
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
