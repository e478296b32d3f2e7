package generator

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

	// 模型常把真实换行/制表符塞进字符串值里，严格解析会失败。
	// 只对这两个自由文本字段做转义，其余部分保持原样。
	freeTextFieldPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)("content"\s*:\s*")((?:[^"\\]|\\.)*)(")`),
		regexp.MustCompile(`(?s)("shareableQuote"\s*:\s*")((?:[^"\\]|\\.)*)(")`),
	}
)

// Normalize 把模型原始输出整理成 Story。依次尝试：去围栏后直接解析、
// 转义自由文本字段中的裸控制字符、jsonrepair 兜底修复。
// 全部失败时降级：原文一字不改地作为纯文本返回，不算错误。
// 只有输入为空才返回 NormalizationError。
func Normalize(raw string) (*Story, string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, "", &NormalizationError{Reason: "model returned empty text"}
	}

	candidate := text
	if m := fencedJSONPattern.FindStringSubmatch(text); len(m) >= 2 && strings.TrimSpace(m[1]) != "" {
		candidate = m[1]
	}

	if story, ok := tryParseStory(candidate); ok {
		return story, "", nil
	}
	if story, ok := tryParseStory(escapeFreeTextFields(candidate)); ok {
		return story, "", nil
	}
	if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
		if story, ok := tryParseStory(repaired); ok {
			return story, "", nil
		}
	}

	return nil, raw, nil
}

// 合法的 Story 至少要有 name 和 content，只有名字不算故事。
func tryParseStory(candidate string) (*Story, bool) {
	var story Story
	if err := json.Unmarshal([]byte(candidate), &story); err != nil {
		return nil, false
	}
	if strings.TrimSpace(story.Name) == "" || strings.TrimSpace(story.Content) == "" {
		return nil, false
	}
	return &story, true
}

func escapeFreeTextFields(s string) string {
	out := s
	for _, re := range freeTextFieldPatterns {
		out = escapeFieldValue(re, out)
	}
	return out
}

// 用子匹配下标重建字符串，避免替换函数在空值或 $ 序列上出问题。
func escapeFieldValue(re *regexp.Regexp, s string) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var sb strings.Builder
	last := 0
	for _, m := range matches {
		// m[4]:m[5] 是引号之间的字段值。
		sb.WriteString(s[last:m[4]])
		sb.WriteString(escapeControlChars(s[m[4]:m[5]]))
		last = m[5]
	}
	sb.WriteString(s[last:])
	return sb.String()
}

func escapeControlChars(v string) string {
	v = strings.ReplaceAll(v, "\n", `\n`)
	v = strings.ReplaceAll(v, "\r", `\r`)
	v = strings.ReplaceAll(v, "\t", `\t`)
	return v
}
