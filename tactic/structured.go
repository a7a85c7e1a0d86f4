package tactic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var errNoValidTactics = errors.New("response did not contain any valid tactics")

// StructuredAdapter serves models that can be held to a JSON schema. It asks
// for several scored suggestions, shrinks the output budget when the answer is
// cut off, and degrades through fallback parsers when the JSON is malformed.
type StructuredAdapter struct {
	adapterBase
	backend      StructuredBackend
	schema       map[string]any
	instructions string
}

// NewStructuredAdapter builds an adapter over an already constructed backend.
func NewStructuredAdapter(profile ModelProfile, backend StructuredBackend, logger *slog.Logger) (*StructuredAdapter, error) {
	base, err := newAdapterBase(profile, logger)
	if err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("tactic: structured adapter for %s needs a backend", base.profile.Model)
	}
	return &StructuredAdapter{
		adapterBase:  base,
		backend:      backend,
		schema:       suggestionSchema(base.profile.MaxSuggestions),
		instructions: schemaInstructions(base.profile.MaxSuggestions),
	}, nil
}

// retryState is the per-call attempt counter and output budget.
type retryState struct {
	attempt int
	budget  int
}

// shrink halves the budget down to floor. It reports false when the budget
// cannot get any smaller.
func (r *retryState) shrink(floor int) bool {
	next := max(floor, r.budget/2)
	if next >= r.budget {
		return false
	}
	r.budget = next
	return true
}

// Generate implements Generator.
func (a *StructuredAdapter) Generate(ctx context.Context, state, prefix string) ([]Candidate, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	prompt, err := a.family.Prompt(state, prefix)
	if err != nil {
		return nil, err
	}

	rs := retryState{budget: a.profile.MaxOutputTokens}
	var (
		lastErr error
		lastRaw string
	)
	for rs.attempt < a.profile.MaxAttempts {
		call := a.call(prompt, rs.budget)
		call.System = a.instructions
		call.Schema = a.schema
		call.SchemaName = suggestionSchemaName

		reply, err := a.backend.GenerateStructured(ctx, call)
		if err != nil {
			return nil, a.transportError(err)
		}

		if reply.Incomplete {
			spent := rs.budget
			if !rs.shrink(a.profile.TokenFloor) {
				return nil, fmt.Errorf("%w: %s stopped early at %d output tokens", ErrTokenBudgetExhausted, a.profile.Model, spent)
			}
			a.log.Warn("structured output incomplete (max tokens), retrying", "max_output_tokens", rs.budget)
			continue
		}
		if reply.Refusal != "" {
			return nil, &RefusalError{Model: a.profile.Model, Reason: strings.TrimSpace(reply.Refusal)}
		}

		rs.attempt++
		lastRaw = strings.Join(reply.Blocks, "\n")
		cands, err := a.candidates(reply.Blocks)
		if err == nil {
			return a.enforcePrefix(cands, prefix)
		}
		lastErr = err
		a.log.Warn("structured output attempt failed",
			"attempt", rs.attempt, "max_attempts", a.profile.MaxAttempts, "error", err)
	}

	a.log.Error("no structured payload recovered", "raw", snippet(lastRaw, 2000))
	return nil, &OutputError{
		Model:    a.profile.Model,
		Attempts: rs.attempt,
		Snippet:  snippet(lastRaw, 200),
		Err:      lastErr,
	}
}

// candidates recovers, validates and ranks the suggestions of one reply.
func (a *StructuredAdapter) candidates(blocks []string) ([]Candidate, error) {
	limit := a.profile.MaxSuggestions
	payload, strategy, err := recoverPayload(blocks, a.schema, limit)
	if err != nil {
		return nil, err
	}
	if strategy != parseChain[0].name {
		a.log.Warn("structured output recovered by fallback parser", "strategy", strategy)
	}

	suggestions := payload.Suggestions
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	out := make([]Candidate, 0, len(suggestions))
	for _, s := range suggestions {
		t := strings.TrimSpace(s.Tactic)
		if t == "" {
			continue
		}
		cleaned, err := a.family.Clean(t)
		if err != nil {
			return nil, err
		}
		if cleaned == "" {
			continue
		}
		out = append(out, Candidate{Tactic: cleaned, Confidence: clampConfidence(s.Confidence)})
	}
	if len(out) == 0 {
		return nil, errNoValidTactics
	}
	return Rank(out), nil
}
