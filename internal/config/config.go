// Package config provides hierarchical configuration loading for InterviewLab.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the InterviewLab service.
type Config struct {
	Server       Server       `yaml:"server"`
	Storage      Storage      `yaml:"storage"`
	LLM          LLM          `yaml:"llm"`
	Logging      Logging      `yaml:"logging"`
	Breaker      Breaker      `yaml:"breaker"`
	Cache        Cache        `yaml:"cache"`
	Orchestrator Orchestrator `yaml:"orchestrator"`
	Telemetry    Telemetry    `yaml:"telemetry"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port           string        `yaml:"port"`
	CORSOrigin     string        `yaml:"cors_origin"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`   // Model-calling requests per second per client; 0 disables
	RateLimitBurst int           `yaml:"rate_limit_burst"` // Bucket size (default: 10)
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`  // How long Idempotency-Key responses are replayed
}

// Storage selects and configures the durable store backend.
// The first configured backend wins: kv, then blob, then local.
type Storage struct {
	Dir  string `yaml:"dir"`
	Blob Blob   `yaml:"blob"`
	KV   KV     `yaml:"kv"`
}

// Blob holds configuration for the eventually-consistent blob backend.
type Blob struct {
	APIURL           string        `yaml:"api_url"`
	Token            string        `yaml:"token"`
	RetryAttempts    int           `yaml:"retry_attempts"`    // Total indexed lookups per read (default: 3)
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay"`  // Delay unit; attempt n waits n units (default: 200ms)
	FetchConcurrency int           `yaml:"fetch_concurrency"` // Parallel object fetches during list (default: 8)
	EndpointTTL      time.Duration `yaml:"endpoint_ttl"`      // Cached base endpoint goes stale after this; 0 never (default: 1h)
	Timeout          time.Duration `yaml:"timeout"`
}

// KV holds NATS JetStream key-value configuration.
type KV struct {
	URL              string `yaml:"url"`
	Bucket           string `yaml:"bucket"`
	FetchConcurrency int    `yaml:"fetch_concurrency"` // Parallel value reads during list (default: 8)
}

// LLM holds configuration for the OpenAI-compatible chat completion endpoint.
type LLM struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"` // Fallback when settings name no model for a role
	Timeout time.Duration `yaml:"timeout"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Cache holds the prompt cache configuration.
type Cache struct {
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"`
	PromptTTL   time.Duration `yaml:"prompt_ttl"`
	L2Bucket    string        `yaml:"l2_bucket"` // Only used with the kv backend
}

// Orchestrator holds run lifecycle limits.
type Orchestrator struct {
	DefaultMaxTurns        int           `yaml:"default_max_turns"`        // Simulated runs without maxTurns (default: 30)
	InteractiveTurnCeiling int           `yaml:"interactive_turn_ceiling"` // Hard stop for interactive runs (default: 30)
	SettingsTTL            time.Duration `yaml:"settings_ttl"`
}

// Telemetry holds OpenTelemetry exporter configuration.
type Telemetry struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:           "8080",
			CORSOrigin:     "http://localhost:3000",
			RateLimitRPS:   2,
			RateLimitBurst: 10,
			IdempotencyTTL: 10 * time.Minute,
		},
		Storage: Storage{
			Dir: "data",
			Blob: Blob{
				APIURL:           "https://blob.vercel-storage.com",
				RetryAttempts:    3,
				RetryBaseDelay:   200 * time.Millisecond,
				FetchConcurrency: 8,
				EndpointTTL:      time.Hour,
				Timeout:          30 * time.Second,
			},
			KV: KV{
				Bucket:           "interviewlab",
				FetchConcurrency: 8,
			},
		},
		LLM: LLM{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o",
			Timeout: 2 * time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "interviewlab",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Cache: Cache{
			L1MaxSizeMB: 16,
			PromptTTL:   10 * time.Minute,
			L2Bucket:    "interviewlab-cache",
		},
		Orchestrator: Orchestrator{
			DefaultMaxTurns:        30,
			InteractiveTurnCeiling: 30,
			SettingsTTL:            5 * time.Second,
		},
		Telemetry: Telemetry{
			Endpoint:    "localhost:4317",
			ServiceName: "interviewlab",
		},
	}
}
