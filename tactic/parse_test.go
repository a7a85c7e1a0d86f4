package tactic

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSuggestionSchema(t *testing.T) {
	s := suggestionSchema(3)
	if s["additionalProperties"] != false {
		t.Fatalf("top-level schema must be closed: %v", s)
	}
	req, _ := s["required"].([]string)
	if strings.Join(req, ",") != "explanation,suggestions" {
		t.Fatalf("required = %v", req)
	}
	list := s["properties"].(map[string]any)["suggestions"].(map[string]any)
	if list["maxItems"] != 3 {
		t.Fatalf("maxItems = %v", list["maxItems"])
	}
	item := list["items"].(map[string]any)
	if item["additionalProperties"] != false {
		t.Fatalf("item schema must be closed: %v", item)
	}

	// Each call gets its own schema.
	if suggestionSchema(5)["properties"].(map[string]any)["suggestions"].(map[string]any)["maxItems"] != 5 {
		t.Fatal("schemas share state")
	}
}

func TestValidateAgainstSchema(t *testing.T) {
	schema := suggestionSchema(5)
	cases := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"valid", `{"explanation":"e","suggestions":[{"tactic":"simp","confidence":0.5}]}`, ""},
		{"missing field", `{"suggestions":[]}`, `missing required property "explanation"`},
		{"extra field", `{"explanation":"e","suggestions":[],"x":1}`, `unexpected property "x"`},
		{"wrong type", `{"explanation":"e","suggestions":[{"tactic":3,"confidence":0.5}]}`, "$.suggestions[0].tactic: expected string"},
		{"not an object", `[1,2]`, "$: expected object, got array"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v any
			if err := json.Unmarshal([]byte(tc.raw), &v); err != nil {
				t.Fatal(err)
			}
			err := validateAgainstSchema(schema, v, "")
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_RoundTrippedSchema(t *testing.T) {
	b, _ := json.Marshal(suggestionSchema(5))
	var schema map[string]any
	if err := json.Unmarshal(b, &schema); err != nil {
		t.Fatal(err)
	}
	var v any
	_ = json.Unmarshal([]byte(`{"suggestions":[]}`), &v)
	if err := validateAgainstSchema(schema, v, ""); err == nil {
		t.Fatal("required list lost after JSON round trip")
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"Here: {\"a\":{\"b\":2}} thanks", `{"a":{"b":2}}`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"no braces here", "no braces here"},
		{"```\nplain\n```", "plain"},
	}
	for _, tc := range cases {
		if got := stripCodeFences(tc.in); got != tc.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRecoverPayload_Strategies(t *testing.T) {
	schema := suggestionSchema(5)
	cases := []struct {
		name     string
		blocks   []string
		strategy string
		tactics  []string
	}{
		{
			name:     "split blocks joined",
			blocks:   []string{`{"explanation":"e","sugg`, `estions":[{"tactic":"rfl","confidence":1}]}`},
			strategy: "schema",
			tactics:  []string{"rfl"},
		},
		{
			name:     "prose around json",
			blocks:   []string{`Answer: {"explanation":"e","suggestions":[{"tactic":"ring","confidence":0.3}]}`},
			strategy: "fenced-json",
			tactics:  []string{"ring"},
		},
		{
			name:     "lines capped at limit",
			blocks:   []string{"{", "a\nb\nc\nd\ne\nf\n}"},
			strategy: "text-lines",
			tactics:  []string{"a", "b", "c", "d", "e"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, strategy, err := recoverPayload(tc.blocks, schema, 5)
			if err != nil {
				t.Fatalf("recoverPayload: %v", err)
			}
			if strategy != tc.strategy {
				t.Fatalf("strategy = %q, want %q", strategy, tc.strategy)
			}
			var got []string
			for _, s := range p.Suggestions {
				got = append(got, s.Tactic)
			}
			if strings.Join(got, "|") != strings.Join(tc.tactics, "|") {
				t.Fatalf("tactics = %v, want %v", got, tc.tactics)
			}
		})
	}
}

func TestRecoverPayload_AllMiss(t *testing.T) {
	_, _, err := recoverPayload([]string{"", "  "}, suggestionSchema(5), 5)
	if err == nil {
		t.Fatal("expected error for empty blocks")
	}
	for _, name := range []string{"schema", "fenced-json", "text-lines"} {
		if !strings.Contains(err.Error(), name+":") {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
}
