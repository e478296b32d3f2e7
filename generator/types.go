package generator

import "time"

// Story 模型产出的结构化故事。name 与 content 非空才算有效，其余字段可选。
type Story struct {
	Name           string `json:"name"`
	Title          string `json:"title,omitempty"`
	Content        string `json:"content"`
	ShareableQuote string `json:"shareableQuote,omitempty"`
}

// Result is the single process-wide outcome snapshot served to clients.
// Exactly one of Story or Text carries the payload: Story when the model
// output parsed into the structured shape, Text for raw, placeholder, and
// fallback payloads. Results are immutable once published to the store.
type Result struct {
	Story        *Story     `json:"story,omitempty"`
	Text         string     `json:"text,omitempty"`
	IsProcessing bool       `json:"isProcessing"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// GenerationRequest 单次生成的临时值，仅存活到写完审计日志。
type GenerationRequest struct {
	BasePrompt      string
	AugmentedPrompt string
	GenerationID    string
	Timestamp       time.Time
}

// AuditRecord is one append-only entry describing a generation attempt.
type AuditRecord struct {
	ID        string
	Timestamp time.Time
	Prompt    string
	Outcome   string // rendered payload on success
	Error     string // non-empty on failure
}

// AuditSink records every generation attempt. Implementations must never fail
// the calling cycle; write problems are theirs to log.
type AuditSink interface {
	Record(rec AuditRecord)
}
