package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// DefaultPath is where LoadConfig looks when no --config flag is given.
	DefaultPath = "config/config.json"

	DefaultServerAddr     = ":8080"
	DefaultPromptPath     = "prompt.txt"
	DefaultAuditLogPath   = "story_log.txt"
	DefaultProvider       = "anthropic"
	DefaultModel          = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens      = 1500
	DefaultTimeoutSeconds = 60
)

// Config holds the service configuration.
type Config struct {
	ServerAddr     string           `json:"server_addr,omitempty"`
	Environment    string           `json:"environment,omitempty"` // development | production
	PromptPath     string           `json:"prompt_path,omitempty"`
	AuditLogPath   string           `json:"audit_log_path,omitempty"`
	ServiceAPIKey  string           `json:"service_api_key,omitempty"`
	AllowedOrigins []string         `json:"allowed_origins,omitempty"`
	RateLimit      *RateLimitConfig `json:"rate_limit,omitempty"`
	LLM            *LLMConfig       `json:"llm,omitempty"`
}

// LLMConfig 提供给生成模块的模型配置。
type LLMConfig struct {
	Provider       string `json:"provider,omitempty"` // anthropic | openai | mock
	Model          string `json:"model,omitempty"`
	APIKey         string `json:"api_key,omitempty"`
	BaseURL        string `json:"base_url,omitempty"`
	MaxTokens      int    `json:"max_tokens,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// RateLimitConfig bounds inbound request rates per client IP.
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute,omitempty"`
	Burst             int `json:"burst,omitempty"`
}

// LoadConfig reads JSON config from disk, fills defaults, and applies
// environment overrides. A missing file at the default path is not an error so
// the service can run from environment variables alone.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	usingDefault := path == "" || path == DefaultPath
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && usingDefault:
		// fall through to defaults + env
	default:
		return Config{}, err
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.PromptPath == "" {
		c.PromptPath = DefaultPromptPath
	}
	if c.AuditLogPath == "" {
		c.AuditLogPath = DefaultAuditLogPath
	}
	if c.LLM == nil {
		c.LLM = &LLMConfig{}
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = DefaultProvider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = DefaultMaxTokens
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.RateLimit == nil {
		c.RateLimit = &RateLimitConfig{RequestsPerMinute: 30, Burst: 10}
	}
}

// applyEnv layers environment variables over file values. Environment wins so a
// deployment can keep secrets out of config.json entirely.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("CLAUDE_API_KEY")); v != "" && c.LLM.Provider == "anthropic" {
		c.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" && c.LLM.Provider == "openai" {
		c.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("STORY_SERVICE_API_KEY")); v != "" {
		c.ServiceAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("STORY_SERVER_ADDR")); v != "" {
		c.ServerAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("STORY_PROMPT_PATH")); v != "" {
		c.PromptPath = v
	}
	if v := strings.TrimSpace(os.Getenv("STORY_AUDIT_LOG_PATH")); v != "" {
		c.AuditLogPath = v
	}
	if v := strings.TrimSpace(os.Getenv("STORY_ENV")); v != "" {
		c.Environment = v
	}
	if v := strings.TrimSpace(os.Getenv("STORY_RATE_LIMIT_RPM")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "anthropic", "openai", "mock":
	default:
		return fmt.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
	switch c.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("environment must be development or production, got %q", c.Environment)
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate limit values must not be negative")
	}
	return nil
}

// IsDevelopment reports whether detailed error messages may be surfaced to clients.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}
