package tactic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// TextAdapter serves providers that return exactly one free-text completion.
// The extracted tactic is returned alone with confidence 1.
type TextAdapter struct {
	adapterBase
	backend TextBackend
}

func NewTextAdapter(profile ModelProfile, backend TextBackend, logger *slog.Logger) (*TextAdapter, error) {
	base, err := newAdapterBase(profile, logger)
	if err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("tactic: text adapter for %s needs a backend", base.profile.Model)
	}
	return &TextAdapter{adapterBase: base, backend: backend}, nil
}

// Generate implements Generator.
func (a *TextAdapter) Generate(ctx context.Context, state, prefix string) ([]Candidate, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	prompt, err := a.family.Prompt(state, prefix)
	if err != nil {
		return nil, err
	}
	reply, err := a.backend.GenerateText(ctx, a.call(prompt, a.profile.MaxOutputTokens))
	if err != nil {
		return nil, a.transportError(err)
	}
	if reply.Refusal != "" {
		return nil, &RefusalError{Model: a.profile.Model, Reason: strings.TrimSpace(reply.Refusal)}
	}

	tac, err := a.family.Extract(reply.Text)
	if err != nil {
		return nil, err
	}
	if tac == "" {
		a.log.Warn("completion held no tactic", "raw", snippet(reply.Text, 2000))
		return nil, fmt.Errorf("%w: %s returned %q", ErrEmptyCompletion, a.profile.Model, snippet(reply.Text, 200))
	}
	a.log.Debug("completion extracted", "tactic", tac)
	return a.enforcePrefix(Rank([]Candidate{{Tactic: tac, Confidence: 1.0}}), prefix)
}
