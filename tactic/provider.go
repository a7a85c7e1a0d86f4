package tactic

import "context"

// Call is a normalized, provider-agnostic request produced by an adapter.
type Call struct {
	Model  string
	System string
	Input  string

	MaxOutputTokens int
	Temperature     *float64
	TopP            *float64
	ReasoningEffort string

	// Schema, when set, asks the provider to enforce a JSON response shape.
	Schema     map[string]any
	SchemaName string
}

// StructuredReply is what a schema-constrained call produced.
type StructuredReply struct {
	// Incomplete reports that output stopped because the token budget ran out.
	Incomplete bool
	// Refusal holds the provider's refusal text; empty when it answered.
	Refusal string
	// Blocks are the text content blocks of the answer, in order.
	Blocks []string

	PromptTokens     *int
	CompletionTokens *int
}

// TextReply is what a free-text call produced.
type TextReply struct {
	Text    string
	Refusal string

	PromptTokens     *int
	CompletionTokens *int
}

// StructuredBackend is implemented by providers with native JSON-schema output.
type StructuredBackend interface {
	GenerateStructured(ctx context.Context, call Call) (StructuredReply, error)
}

// TextBackend is implemented by providers that return one free-text completion.
type TextBackend interface {
	GenerateText(ctx context.Context, call Call) (TextReply, error)
}

func intPtr(v int) *int { return &v }
