package tactic

import (
	"context"
	"strings"
	"testing"

	"google.golang.org/genai"
)

type fakeGoogleModels struct {
	model  string
	config *genai.GenerateContentConfig
	text   string
	resp   *genai.GenerateContentResponse
	err    error
}

func (f *fakeGoogleModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.text = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func geminiResponse(reason genai.FinishReason, parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: reason,
			Content:      &genai.Content{Role: "model", Parts: parts},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     30,
			CandidatesTokenCount: 9,
		},
	}
}

func TestGoogle_StructuredConfig(t *testing.T) {
	f := &fakeGoogleModels{resp: geminiResponse(genai.FinishReasonStop,
		&genai.Part{Text: "thinking about it", Thought: true},
		&genai.Part{Text: `{"explanation":"e",`},
		&genai.Part{Text: `"suggestions":[]}`},
	)}
	reply, err := NewGoogleBackend(f).GenerateStructured(context.Background(), Call{
		Model:           "gemini-2.5-flash",
		System:          "sys",
		Input:           "prompt",
		MaxOutputTokens: 300,
		Schema:          suggestionSchema(5),
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.model != "gemini-2.5-flash" || f.text != "prompt" {
		t.Fatalf("model = %q, text = %q", f.model, f.text)
	}
	cfg := f.config
	if cfg.ResponseMIMEType != "application/json" || cfg.ResponseJsonSchema == nil {
		t.Fatalf("structured output not requested: %+v", cfg)
	}
	if cfg.MaxOutputTokens != 300 {
		t.Fatalf("max output tokens = %d", cfg.MaxOutputTokens)
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "sys" {
		t.Fatalf("system instruction = %+v", cfg.SystemInstruction)
	}
	if cfg.Temperature != nil || cfg.TopP != nil {
		t.Fatal("sampling params must stay unset")
	}

	if len(reply.Blocks) != 1 || strings.Contains(reply.Blocks[0], "thinking") {
		t.Fatalf("blocks = %q", reply.Blocks)
	}
	if reply.Blocks[0] != "{\"explanation\":\"e\",\n\"suggestions\":[]}" {
		t.Fatalf("blocks = %q", reply.Blocks)
	}
	if *reply.PromptTokens != 30 || *reply.CompletionTokens != 9 {
		t.Fatalf("usage = %+v", reply)
	}
}

func TestGoogle_FinishReasons(t *testing.T) {
	cases := []struct {
		name           string
		resp           *genai.GenerateContentResponse
		wantIncomplete bool
		wantRefusal    string
	}{
		{"max tokens", geminiResponse(genai.FinishReasonMaxTokens, &genai.Part{Text: "{"}), true, ""},
		{"safety", geminiResponse(genai.FinishReasonSafety), false, "SAFETY"},
		{"recitation", geminiResponse(genai.FinishReasonRecitation), false, "RECITATION"},
		{"prompt blocked", &genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReason("SAFETY")},
		}, false, "prompt blocked: SAFETY"},
		{"empty", &genai.GenerateContentResponse{}, false, ""},
		{"nil", nil, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeGoogleModels{resp: tc.resp}
			reply, err := NewGoogleBackend(f).GenerateStructured(context.Background(), Call{Model: "gemini-2.5-pro"})
			if err != nil {
				t.Fatal(err)
			}
			if reply.Incomplete != tc.wantIncomplete {
				t.Fatalf("incomplete = %v", reply.Incomplete)
			}
			if !strings.HasPrefix(reply.Refusal, tc.wantRefusal) || (tc.wantRefusal == "") != (reply.Refusal == "") {
				t.Fatalf("refusal = %q, want %q", reply.Refusal, tc.wantRefusal)
			}
		})
	}
}

func TestGoogle_TextMode(t *testing.T) {
	temp := 0.5
	f := &fakeGoogleModels{resp: geminiResponse(genai.FinishReasonStop, &genai.Part{Text: "```lean\n\"omega\"\n```"})}
	reply, err := NewGoogleBackend(f).GenerateText(context.Background(), Call{
		Model:       "gemini-2.5-flash",
		Input:       "prompt",
		Temperature: &temp,
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.config.ResponseMIMEType != "" || f.config.ResponseJsonSchema != nil {
		t.Fatal("text mode must not request JSON")
	}
	if f.config.Temperature == nil || *f.config.Temperature != float32(temp) {
		t.Fatalf("temperature = %v", f.config.Temperature)
	}
	tac, _ := ExtractTactic("gemini-2.5-flash", reply.Text)
	if tac != "omega" {
		t.Fatalf("extracted %q from %q", tac, reply.Text)
	}
}
