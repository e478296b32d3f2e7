package generator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LLMClient 抽象大模型客户端，便于替换/Mock。
// Complete 发送单条 user 消息并返回原始文本。
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// NewLLMClient 根据配置选择具体实现。
func NewLLMClient(cfg *LLMSettings) (LLMClient, error) {
	if cfg == nil || cfg.Provider == "" {
		return nil, errors.New("llm config missing; please set llm.provider/model in config")
	}
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicLLMFromConfig(cfg)
	case "openai":
		// OpenAI 兼容网关也走这里，需在 base_url 填网关地址。
		return NewOpenAILLMFromConfig(cfg)
	case "mock":
		return MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.Provider)
	}
}
