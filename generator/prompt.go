package generator

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"
)

const generationIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// ReadBasePrompt 从文件读取基础提示词，读取失败时包装为 PromptSourceError。
func ReadBasePrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &PromptSourceError{Path: path, Err: err}
	}
	return strings.TrimSpace(string(data)), nil
}

// NewGenerationID 生成 9 位小写字母数字 ID，用于区分每次生成。
func NewGenerationID() string {
	var sb strings.Builder
	sb.Grow(9)
	for i := 0; i < 9; i++ {
		sb.WriteByte(generationIDAlphabet[rand.IntN(len(generationIDAlphabet))])
	}
	return sb.String()
}

// AugmentPrompt 在基础提示词后追加本次生成的元数据与输出约束。
// 元数据（ID、时间戳、随机种子）让语义相同的提示词每次都不同，
// 降低上游缓存或模型复读同一主题的概率。纯函数，不做网络调用。
func AugmentPrompt(base string) GenerationRequest {
	id := NewGenerationID()
	now := time.Now().UTC()
	uniqueID := fmt.Sprintf("%.6f", float64(now.UnixMilli())+rand.Float64())
	seed := rand.IntN(10000)

	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n\n--- Generation metadata ---\n")
	sb.WriteString(fmt.Sprintf("Generation ID: %s\n", id))
	sb.WriteString(fmt.Sprintf("Timestamp: %s\n", now.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Unique request ID: %s\n", uniqueID))
	sb.WriteString(fmt.Sprintf("Random seed: %d\n", seed))
	sb.WriteString("\nCRITICAL INSTRUCTIONS:\n")
	sb.WriteString("1. Use the generation metadata above as a source of entropy when choosing a subject.\n")
	sb.WriteString("2. Never repeat a subject you may have written about recently, and avoid the most famous figures.\n")
	sb.WriteString("3. Prefer lesser-known people whose stories rarely get told.\n")
	sb.WriteString("4. Vary the era, the region of the world, and the field of endeavour from one story to the next.\n")
	sb.WriteString("5. Respond with a single JSON object containing exactly the keys \"name\", \"title\", \"content\" and \"shareableQuote\". Do not wrap it in code fences or add any text before or after it.\n")

	return GenerationRequest{
		BasePrompt:      base,
		AugmentedPrompt: sb.String(),
		GenerationID:    id,
		Timestamp:       now,
	}
}
