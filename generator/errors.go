package generator

import (
	"errors"
	"fmt"
)

// Failure categories for a generation cycle. The coordinator converts every one
// of them into a Result snapshot; none escape to HTTP callers.
var (
	// ErrUpstream groups provider-side failures: non-2xx, timeout, network,
	// or a response envelope missing the expected text.
	ErrUpstream = errors.New("upstream generation failed")
)

// ConfigError reports a missing or unusable credential. The cycle fails before
// any network call is attempted.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// UpstreamError carries provider detail for the audit log while remaining
// matchable via errors.Is(err, ErrUpstream).
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("%s API error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s API error: %s: %v", e.Provider, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// NormalizationError reports that the provider yielded no usable text at all.
// Text that exists but is not valid JSON is a degraded payload, not an error.
type NormalizationError struct {
	Reason string
}

func (e *NormalizationError) Error() string { return "normalization failed: " + e.Reason }

// PromptSourceError reports a missing or unreadable prompt file.
type PromptSourceError struct {
	Path string
	Err  error
}

func (e *PromptSourceError) Error() string {
	return fmt.Sprintf("prompt source %s: %v", e.Path, e.Err)
}

func (e *PromptSourceError) Unwrap() error { return e.Err }
