package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultAnthropicBaseURL   = "https://api.anthropic.com/v1"
	defaultAnthropicVersion   = "2023-06-01"
	anthropicAPIKeyHeaderKey  = "x-api-key"
	anthropicVersionHeaderKey = "anthropic-version"
	anthropicMessagesPath     = "/messages"
)

// AnthropicLLM implements LLMClient against the Anthropic messages API.
// This is the default production client.
type AnthropicLLM struct {
	model      string
	apiKey     string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

// NewAnthropicLLMFromConfig builds the client. A missing API key is not a
// construction error: the service must boot without one and report the
// condition per generation cycle instead.
func NewAnthropicLLMFromConfig(cfg *LLMSettings) (*AnthropicLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1500
	}
	return &AnthropicLLM{
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

func (c *AnthropicLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", &ConfigError{Message: "CLAUDE_API_KEY not configured"}
	}

	payload := anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+anthropicMessagesPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(anthropicAPIKeyHeaderKey, c.apiKey)
	req.Header.Set(anthropicVersionHeaderKey, defaultAnthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Provider: "anthropic", Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Provider: "anthropic", Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		return "", &UpstreamError{Provider: "anthropic", StatusCode: resp.StatusCode, Message: msg}
	}

	// The envelope is probed leniently: providers keep adding fields and only
	// content[0].text matters here.
	text := gjson.GetBytes(respBody, "content.0.text").String()
	if text == "" {
		return "", &UpstreamError{Provider: "anthropic", StatusCode: resp.StatusCode, Message: "response envelope missing text content"}
	}
	return text, nil
}
