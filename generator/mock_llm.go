package generator

import (
	"context"
	"encoding/json"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, _ string) (string, error) {
	// 固定返回一则合法的故事 JSON，走完整条解析链路。
	story := Story{
		Name:    "Mary Anning",
		Title:   "The Fossil Hunter of Lyme Regis",
		Content: "Every morning after a storm, a young woman walked the crumbling cliffs of the Dorset coast, hammer in hand. Mary Anning sold seashells to tourists to keep her family fed, but what she pulled out of the blue lias rock changed science forever: the first complete ichthyosaur, the first plesiosaur, creatures no textbook had names for. The learned societies that relied on her finds would not admit her, so she taught herself anatomy by candlelight and corrected the professors by post.",
		ShareableQuote: "The world has used me so unkindly, I fear it has made me suspicious of everyone.",
	}
	data, err := json.Marshal(story)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
