package generator

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat
// completions). It serves OpenAI-compatible gateways as an alternative to the
// Anthropic default.
type OpenAILLM struct {
	model     string
	apiKey    string
	maxTokens int
	opts      []option.RequestOption
}

func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1500
	}
	return &OpenAILLM{model: cfg.Model, apiKey: cfg.APIKey, maxTokens: maxTokens, opts: opts}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt string) (string, error) {
	if o.apiKey == "" {
		return "", &ConfigError{Message: "OPENAI_API_KEY not configured"}
	}

	client := openai.NewClient(o.opts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(int64(o.maxTokens)),
	})
	if err != nil {
		return "", &UpstreamError{Provider: "openai", Message: "chat completion failed", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Provider: "openai", Message: "empty choices"}
	}
	return resp.Choices[0].Message.Content, nil
}
