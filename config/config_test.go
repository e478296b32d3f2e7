package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CLAUDE_API_KEY", "OPENAI_API_KEY", "STORY_SERVICE_API_KEY",
		"STORY_SERVER_ADDR", "STORY_PROMPT_PATH", "STORY_AUDIT_LOG_PATH",
		"STORY_ENV", "STORY_RATE_LIMIT_RPM",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultServerAddr, cfg.ServerAddr)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, DefaultPromptPath, cfg.PromptPath)
	assert.Equal(t, DefaultAuditLogPath, cfg.AuditLogPath)
	assert.Equal(t, DefaultProvider, cfg.LLM.Provider)
	assert.Equal(t, DefaultModel, cfg.LLM.Model)
	assert.Equal(t, DefaultMaxTokens, cfg.LLM.MaxTokens)
	assert.Equal(t, DefaultTimeoutSeconds, cfg.LLM.TimeoutSeconds)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadConfigMissingExplicitPathFails(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `{
		"server_addr": ":9999",
		"environment": "development",
		"prompt_path": "prompts/base.txt",
		"service_api_key": "sekrit",
		"allowed_origins": ["https://stories.example.com"],
		"rate_limit": {"requests_per_minute": 5, "burst": 2},
		"llm": {"provider": "openai", "model": "gpt-4o-mini", "api_key": "sk-file", "max_tokens": 900, "timeout_seconds": 15}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ServerAddr)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "prompts/base.txt", cfg.PromptPath)
	assert.Equal(t, "sekrit", cfg.ServiceAPIKey)
	assert.Equal(t, []string{"https://stories.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 5, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 2, cfg.RateLimit.Burst)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "sk-file", cfg.LLM.APIKey)
	assert.Equal(t, 900, cfg.LLM.MaxTokens)
	assert.Equal(t, 15, cfg.LLM.TimeoutSeconds)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `{"server_addr": ":7000", "llm": {"provider": "anthropic", "api_key": "file-key"}}`)

	t.Setenv("CLAUDE_API_KEY", "env-key")
	t.Setenv("STORY_SERVER_ADDR", ":7001")
	t.Setenv("STORY_SERVICE_API_KEY", "svc-key")
	t.Setenv("STORY_ENV", "development")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, ":7001", cfg.ServerAddr)
	assert.Equal(t, "svc-key", cfg.ServiceAPIKey)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfigClaudeKeyIgnoredForOtherProviders(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `{"llm": {"provider": "openai", "api_key": "sk-file"}}`)
	t.Setenv("CLAUDE_API_KEY", "env-key")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-file", cfg.LLM.APIKey)
}

func TestLoadConfigRejectsUnknownProvider(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `{"llm": {"provider": "carrier-pigeon"}}`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestLoadConfigRejectsUnknownEnvironment(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `{"environment": "staging"}`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment")
}

func TestLoadConfigRejectsMalformedJSON(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `{"server_addr": `)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRateLimitRPMFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORY_RATE_LIMIT_RPM", "120")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.RateLimit.RequestsPerMinute)
}
