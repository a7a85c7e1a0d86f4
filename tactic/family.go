package tactic

import (
	"fmt"
	"strings"
)

// Family groups model identifiers that share prompt and extraction rules.
type Family int

const (
	familyUnknown Family = iota
	// FamilyInternLM is the InternLM2 math chat model (first line of the fenced answer).
	FamilyInternLM
	// FamilyKimina is the Kimina prover distill (last line of the fenced answer).
	FamilyKimina
	// FamilyGPTFenced covers older OpenAI chat models that answer in a lean fence.
	FamilyGPTFenced
	// FamilyGPTPlain covers gpt-5 models that answer with the bare tactic.
	FamilyGPTPlain
	// FamilyClaude covers Anthropic models.
	FamilyClaude
	// FamilyGemini covers Google models, which tend to quote the tactic.
	FamilyGemini
)

var familyNames = map[Family]string{
	FamilyInternLM:  "internlm",
	FamilyKimina:    "kimina",
	FamilyGPTFenced: "gpt-fenced",
	FamilyGPTPlain:  "gpt-plain",
	FamilyClaude:    "claude",
	FamilyGemini:    "gemini",
}

func (f Family) String() string {
	if n, ok := familyNames[f]; ok {
		return n
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// familyRules is the prompt/extraction capability pair of one family.
type familyRules struct {
	prompt  func(state, prefix string) string
	extract func(raw string) string
	// provider serves the family when a profile does not name one.
	provider Provider
}

var rules = map[Family]familyRules{
	FamilyInternLM:  {prompt: chatTemplatePrompt, extract: extractFirstAfterAssistant, provider: ProviderLocal},
	FamilyKimina:    {prompt: chatTemplatePrompt, extract: extractLastAfterAssistant, provider: ProviderLocal},
	FamilyGPTFenced: {prompt: goalContextPrompt, extract: extractFenced, provider: ProviderOpenAI},
	FamilyGPTPlain:  {prompt: goalContextPrompt, extract: extractPlain, provider: ProviderOpenAI},
	FamilyClaude:    {prompt: goalContextPrompt, extract: extractFenced, provider: ProviderAnthropic},
	FamilyGemini:    {prompt: goalContextPrompt, extract: extractQuoted, provider: ProviderGoogle},
}

func (f Family) rules() (familyRules, bool) {
	r, ok := rules[f]
	return r, ok
}

// FamilyOf detects the family of a model identifier.
func FamilyOf(model string) (Family, error) {
	switch model {
	case "internlm/internlm2-math-plus-1_8b":
		return FamilyInternLM, nil
	case "AI-MO/Kimina-Prover-Preview-Distill-7B":
		return FamilyKimina, nil
	case "gpt-3.5-turbo", "gpt-4-turbo-preview":
		return FamilyGPTFenced, nil
	}
	switch {
	case strings.HasPrefix(model, "gpt-5"):
		return FamilyGPTPlain, nil
	case strings.Contains(model, "gemini"):
		return FamilyGemini, nil
	case strings.Contains(model, "claude"):
		return FamilyClaude, nil
	}
	return familyUnknown, unsupportedModel(model)
}

// ParseFamily resolves a family by its String name.
func ParseFamily(name string) (Family, error) {
	for f, n := range familyNames {
		if n == name {
			return f, nil
		}
	}
	return familyUnknown, fmt.Errorf("%w: unknown family %q", ErrUnsupportedModel, name)
}

// resolveFamily prefers an explicit family name over detection from the model id.
func resolveFamily(model, override string) (Family, error) {
	if override != "" {
		return ParseFamily(override)
	}
	return FamilyOf(model)
}

// BuildPrompt renders the family prompt for a proof state and optional prefix.
func BuildPrompt(model, state, prefix string) (string, error) {
	f, err := FamilyOf(model)
	if err != nil {
		return "", err
	}
	return f.Prompt(state, prefix)
}

// ExtractTactic cleans a raw completion into a single tactic using the family rule.
func ExtractTactic(model, raw string) (string, error) {
	f, err := FamilyOf(model)
	if err != nil {
		return "", err
	}
	return f.Extract(raw)
}

// Prompt renders this family's prompt.
func (f Family) Prompt(state, prefix string) (string, error) {
	r, ok := f.rules()
	if !ok {
		return "", unsupportedModel(f.String())
	}
	return r.prompt(strings.TrimSpace(state), prefix), nil
}

// Extract applies this family's extraction rule.
func (f Family) Extract(raw string) (string, error) {
	r, ok := f.rules()
	if !ok {
		return "", unsupportedModel(f.String())
	}
	return r.extract(raw), nil
}

// Clean tidies one tactic field of a structured reply. Unlike Extract it never
// cuts inside the tactic, so identifiers and string literals survive.
func (f Family) Clean(field string) (string, error) {
	if _, ok := f.rules(); !ok {
		return "", unsupportedModel(f.String())
	}
	return cleanField(field), nil
}
