package tactic

import (
	"context"
	"fmt"
	"log/slog"
)

// adapterBase holds what both adapter variants resolve at construction.
type adapterBase struct {
	profile ModelProfile
	family  Family
	log     *slog.Logger
}

func newAdapterBase(profile ModelProfile, logger *slog.Logger) (adapterBase, error) {
	profile = profile.withDefaults()
	if profile.Model == "" {
		return adapterBase{}, fmt.Errorf("tactic: profile %q has no model", profile.Name)
	}
	fam, err := resolveFamily(profile.Model, profile.Family)
	if err != nil {
		return adapterBase{}, err
	}
	if profile.Provider == "" {
		r, _ := fam.rules()
		profile.Provider = r.provider
	}
	if logger == nil {
		logger = slog.Default()
	}
	return adapterBase{
		profile: profile,
		family:  fam,
		log:     logger.With("model", profile.Model, "family", fam.String()),
	}, nil
}

// Profile returns the resolved profile the adapter was built with.
func (b adapterBase) Profile() ModelProfile { return b.profile }

// Family returns the model family that drives prompt and extraction rules.
func (b adapterBase) Family() Family { return b.family }

func (b adapterBase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.profile.Timeout > 0 {
		return context.WithTimeout(ctx, b.profile.Timeout)
	}
	return ctx, func() {}
}

func (b adapterBase) call(prompt string, budget int) Call {
	return Call{
		Model:           b.profile.Model,
		Input:           prompt,
		MaxOutputTokens: budget,
		Temperature:     b.profile.Temperature,
		TopP:            b.profile.TopP,
		ReasoningEffort: b.profile.ReasoningEffort,
	}
}

func (b adapterBase) transportError(err error) error {
	return &TransportError{Provider: b.profile.Provider, Model: b.profile.Model, Err: err}
}

// enforcePrefix applies the optional post-hoc prefix check.
func (b adapterBase) enforcePrefix(cands []Candidate, prefix string) ([]Candidate, error) {
	if !b.profile.EnforcePrefix || prefix == "" {
		return cands, nil
	}
	kept := filterPrefix(cands, prefix)
	if len(kept) == 0 {
		b.log.Warn("all candidates dropped by prefix check", "prefix", prefix, "candidates", len(cands))
		return nil, fmt.Errorf("%w %q (model %s)", ErrPrefixViolation, prefix, b.profile.Model)
	}
	return kept, nil
}
