package tactic

import (
	"context"
	"encoding/json"
	"time"
)

// Provider identifies which backend serves a model.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	ProviderAnthropic Provider = "anthropic"
	// ProviderLocal is an OpenAI-compatible completions endpoint (vLLM, llama.cpp server)
	// serving one of the local model families.
	ProviderLocal Provider = "local"
)

// Mode selects which adapter variant a profile is served by.
type Mode string

const (
	// ModeStructured requests schema-constrained JSON with several ranked suggestions.
	ModeStructured Mode = "structured"
	// ModeText requests one free-text completion and extracts a single tactic from it.
	ModeText Mode = "text"
)

const (
	// MaxSuggestions caps how many suggestions a structured call may request.
	MaxSuggestions = 5
	// DefaultMaxAttempts bounds parse attempts of the structured adapter.
	DefaultMaxAttempts = 3
	// DefaultTokenFloor is the smallest output budget the structured adapter shrinks to.
	DefaultTokenFloor = 128
	// DefaultMaxOutputTokens is used when a profile leaves the budget unset.
	DefaultMaxOutputTokens = 1024
)

// Candidate is one suggested tactic with a relative preference score in [0,1].
type Candidate struct {
	Tactic     string  `json:"tactic"`
	Confidence float64 `json:"confidence"`
}

// Generator is the single contract every adapter implements.
type Generator interface {
	// Generate returns at least one ranked candidate or an error.
	Generate(ctx context.Context, state, prefix string) ([]Candidate, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, state, prefix string) ([]Candidate, error)

func (f GeneratorFunc) Generate(ctx context.Context, state, prefix string) ([]Candidate, error) {
	return f(ctx, state, prefix)
}

// ModelProfile is the static per-model configuration an adapter is built from.
// It is copied into the adapter and never mutated afterwards.
type ModelProfile struct {
	// Name is the registry key callers use; defaults to Model.
	Name string
	// Model is the provider-side model identifier.
	Model string
	// Family overrides family detection from Model (see ParseFamily).
	Family string

	Provider Provider
	Mode     Mode

	MaxOutputTokens int
	TokenFloor      int
	MaxSuggestions  int
	MaxAttempts     int

	ReasoningEffort string
	Temperature     *float64
	TopP            *float64

	// Timeout, when positive, bounds every Generate call.
	Timeout time.Duration

	// EnforcePrefix drops candidates that do not start with the requested prefix.
	EnforcePrefix bool

	// RequestsPerMinute, when positive, rate limits the model in a Registry.
	RequestsPerMinute int
}

// withDefaults fills unset limits; it does not resolve family or provider.
func (p ModelProfile) withDefaults() ModelProfile {
	if p.Name == "" {
		p.Name = p.Model
	}
	if p.MaxOutputTokens <= 0 {
		p.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if p.TokenFloor <= 0 {
		p.TokenFloor = DefaultTokenFloor
	}
	if p.MaxSuggestions <= 0 || p.MaxSuggestions > MaxSuggestions {
		p.MaxSuggestions = MaxSuggestions
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	return p
}

// rawJSONSchema is a thin json.Marshaler wrapper to pass generic schemas
// into SDKs that take custom types implementing MarshalJSON.
type rawJSONSchema struct {
	m map[string]any
}

func (r rawJSONSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.m)
}
