package audit

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"daily_story_server/generator"
)

const separator = "================================================================================"

// FileSink appends one human-readable block per generation attempt to a plain
// text file. Records are never rewritten; the file only grows. Write failures
// are reported through the process logger and never fail the caller.
type FileSink struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

func NewFileSink(path string, logger *zap.Logger) *FileSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSink{path: path, logger: logger.Named("audit")}
}

// Record appends rec to the log file. The block carries both UTC and local
// representations of the timestamp, the full prompt, and either the outcome
// or the error detail.
func (s *FileSink) Record(rec generator.AuditRecord) {
	var sb strings.Builder
	sb.WriteString(separator)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Attempt:      %s\n", rec.ID)
	fmt.Fprintf(&sb, "Time (UTC):   %s\n", rec.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Time (local): %s\n", rec.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	sb.WriteString("Prompt:\n")
	sb.WriteString(rec.Prompt)
	sb.WriteString("\n")
	if rec.Error != "" {
		fmt.Fprintf(&sb, "Error: %s\n", rec.Error)
	} else {
		fmt.Fprintf(&sb, "Outcome: %s\n", rec.Outcome)
	}
	sb.WriteString("\n")

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		s.logger.Error("open audit log failed", zap.String("path", s.path), zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.WriteString(sb.String()); err != nil {
		s.logger.Error("append audit record failed", zap.String("path", s.path), zap.Error(err))
	}
}
