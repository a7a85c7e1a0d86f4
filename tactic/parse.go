package tactic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// parseStrategy turns the text blocks of a structured reply into a payload,
// or reports a miss through its error.
type parseStrategy struct {
	name  string
	parse func(blocks []string, schema map[string]any, limit int) (suggestionPayload, error)
}

// parseChain is tried left to right; the first strategy without an error wins.
var parseChain = []parseStrategy{
	{name: "schema", parse: parseSchemaJSON},
	{name: "fenced-json", parse: parseFencedJSON},
	{name: "text-lines", parse: parseTextLines},
}

var errNoText = errors.New("response has no text content")

// recoverPayload runs parseChain and returns the payload with the name of the
// strategy that produced it. Misses from every strategy are joined.
func recoverPayload(blocks []string, schema map[string]any, limit int) (suggestionPayload, string, error) {
	var misses []error
	for _, s := range parseChain {
		p, err := s.parse(blocks, schema, limit)
		if err == nil {
			return p, s.name, nil
		}
		misses = append(misses, fmt.Errorf("%s: %w", s.name, err))
	}
	return suggestionPayload{}, "", errors.Join(misses...)
}

func decodePayload(raw string, schema map[string]any) (suggestionPayload, error) {
	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return suggestionPayload{}, err
	}
	if err := validateAgainstSchema(schema, generic, ""); err != nil {
		return suggestionPayload{}, err
	}
	var p suggestionPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return suggestionPayload{}, err
	}
	return p, nil
}

// parseSchemaJSON decodes the answer exactly as the provider returned it.
func parseSchemaJSON(blocks []string, schema map[string]any, _ int) (suggestionPayload, error) {
	raw := strings.TrimSpace(strings.Join(blocks, ""))
	if raw == "" {
		return suggestionPayload{}, errNoText
	}
	return decodePayload(raw, schema)
}

// parseFencedJSON strips markdown fences and surrounding prose from each block.
func parseFencedJSON(blocks []string, schema map[string]any, _ int) (suggestionPayload, error) {
	var lastErr error = errNoText
	for _, raw := range blocks {
		cleaned := stripCodeFences(raw)
		if cleaned == "" {
			continue
		}
		p, err := decodePayload(cleaned, schema)
		if err == nil {
			return p, nil
		}
		lastErr = fmt.Errorf("%w (snippet %q)", err, snippet(cleaned, 200))
	}
	return suggestionPayload{}, lastErr
}

// parseTextLines treats non-brace lines of the first block that has any as
// zero-confidence guesses.
func parseTextLines(blocks []string, _ map[string]any, limit int) (suggestionPayload, error) {
	var guesses []string
	for _, raw := range blocks {
		for _, line := range strings.Split(raw, "\n") {
			c := strings.Trim(strings.TrimSpace(line), ",")
			if c == "" || strings.HasPrefix(c, "{") || strings.HasPrefix(c, "}") {
				continue
			}
			guesses = append(guesses, c)
			if len(guesses) >= limit {
				break
			}
		}
		if len(guesses) > 0 {
			break
		}
	}
	if len(guesses) == 0 {
		return suggestionPayload{}, errNoText
	}
	p := suggestionPayload{Explanation: "Generated via raw text fallback."}
	for _, g := range guesses {
		p.Suggestions = append(p.Suggestions, suggestion{Tactic: g})
	}
	return p, nil
}

func stripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, fenceMarker) {
		lines := strings.Split(cleaned, "\n")
		if len(lines) > 0 && strings.HasPrefix(lines[0], fenceMarker) {
			lines = lines[1:]
		}
		if len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], fenceMarker) {
			lines = lines[:len(lines)-1]
		}
		cleaned = strings.TrimSpace(strings.Join(lines, "\n"))
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start != -1 && end > start {
		return cleaned[start : end+1]
	}
	return cleaned
}
