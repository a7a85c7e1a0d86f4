package tactic

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedModel means no prompt/extraction rule exists for a model. Never retried.
	ErrUnsupportedModel = errors.New("tactic: unsupported model")
	// ErrModelRefused means the provider explicitly declined to answer.
	ErrModelRefused = errors.New("tactic: model refused")
	// ErrTokenBudgetExhausted means output was cut off even at the smallest budget.
	ErrTokenBudgetExhausted = errors.New("tactic: token budget exhausted")
	// ErrNoStructuredOutput means no candidate could be recovered from any parse strategy.
	ErrNoStructuredOutput = errors.New("tactic: no structured output")
	// ErrEmptyCompletion means a free-text completion held no tactic after extraction.
	ErrEmptyCompletion = errors.New("tactic: empty completion")
	// ErrPrefixViolation means every candidate was dropped by prefix enforcement.
	ErrPrefixViolation = errors.New("tactic: no candidate satisfies prefix")
	// ErrUnknownModel is returned by a Registry for names it does not serve.
	ErrUnknownModel = errors.New("tactic: unknown model name")
)

// RefusalError carries the refusal text returned by the provider.
type RefusalError struct {
	Model  string
	Reason string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("tactic: model %s refused to provide tactics: %s", e.Model, e.Reason)
}

func (e *RefusalError) Is(target error) bool { return target == ErrModelRefused }

// TransportError wraps a failure of the provider SDK or network. The wrapped
// error stays reachable, so callers can errors.As into SDK error types.
type TransportError struct {
	Provider Provider
	Model    string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("tactic: %s call for %s failed: %v", e.Provider, e.Model, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// OutputError reports that a structured call produced nothing usable.
type OutputError struct {
	Model    string
	Attempts int
	// Snippet is a truncated copy of the last raw response.
	Snippet string
	Err     error
}

func (e *OutputError) Error() string {
	msg := fmt.Sprintf("tactic: no structured tactics from %s after %d attempt(s)", e.Model, e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Snippet != "" {
		msg += fmt.Sprintf(" (raw: %q)", e.Snippet)
	}
	return msg
}

func (e *OutputError) Is(target error) bool { return target == ErrNoStructuredOutput }

func (e *OutputError) Unwrap() error { return e.Err }

func unsupportedModel(model string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedModel, model)
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
