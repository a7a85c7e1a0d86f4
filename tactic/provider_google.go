package tactic

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

// GoogleBackendKind selects the underlying Google backend.
type GoogleBackendKind int

const (
	// GoogleBackendAuto chooses based on presence of Project/Location (Vertex) or not (Gemini API).
	GoogleBackendAuto GoogleBackendKind = iota
	// GoogleBackendGemini uses Gemini Developer API.
	GoogleBackendGemini
	// GoogleBackendVertex uses Vertex AI (requires Project and Location).
	GoogleBackendVertex
)

// GoogleModels is the subset of *genai.Models the Google backend calls.
type GoogleModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GoogleBackend serves Gemini models in both structured and text mode.
type GoogleBackend struct {
	models GoogleModels
}

func NewGoogleBackend(models GoogleModels) *GoogleBackend {
	return &GoogleBackend{models: models}
}

func (b *GoogleBackend) GenerateStructured(ctx context.Context, call Call) (StructuredReply, error) {
	cfg := generateConfig(call)
	if len(call.Schema) > 0 {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = call.Schema
	}
	res, err := b.models.GenerateContent(ctx, call.Model, genai.Text(call.Input), cfg)
	if err != nil {
		return StructuredReply{}, err
	}
	return toStructuredReply(res), nil
}

func (b *GoogleBackend) GenerateText(ctx context.Context, call Call) (TextReply, error) {
	res, err := b.models.GenerateContent(ctx, call.Model, genai.Text(call.Input), generateConfig(call))
	if err != nil {
		return TextReply{}, err
	}
	sr := toStructuredReply(res)
	return TextReply{
		Text:             strings.Join(sr.Blocks, "\n"),
		Refusal:          sr.Refusal,
		PromptTokens:     sr.PromptTokens,
		CompletionTokens: sr.CompletionTokens,
	}, nil
}

func generateConfig(call Call) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(call.System) != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: call.System}},
		}
	}
	if call.Temperature != nil {
		cfg.Temperature = genai.Ptr[float32](float32(*call.Temperature))
	}
	if call.TopP != nil {
		cfg.TopP = genai.Ptr[float32](float32(*call.TopP))
	}
	if call.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(call.MaxOutputTokens)
	}
	return cfg
}

func toStructuredReply(res *genai.GenerateContentResponse) StructuredReply {
	var sr StructuredReply
	if res == nil {
		return sr
	}
	if res.UsageMetadata != nil {
		if res.UsageMetadata.PromptTokenCount > 0 {
			sr.PromptTokens = intPtr(int(res.UsageMetadata.PromptTokenCount))
		}
		if res.UsageMetadata.CandidatesTokenCount > 0 {
			sr.CompletionTokens = intPtr(int(res.UsageMetadata.CandidatesTokenCount))
		}
	}
	if pf := res.PromptFeedback; pf != nil && pf.BlockReason != "" && pf.BlockReason != genai.BlockedReasonUnspecified {
		sr.Refusal = "prompt blocked: " + string(pf.BlockReason)
		if pf.BlockReasonMessage != "" {
			sr.Refusal += ": " + pf.BlockReasonMessage
		}
		return sr
	}
	if len(res.Candidates) == 0 || res.Candidates[0] == nil {
		return sr
	}

	cand := res.Candidates[0]
	switch cand.FinishReason {
	case genai.FinishReasonMaxTokens:
		sr.Incomplete = true
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
		sr.Refusal = string(cand.FinishReason)
		if cand.FinishMessage != "" {
			sr.Refusal += ": " + cand.FinishMessage
		}
	}
	if cand.Content == nil {
		return sr
	}
	// If multiple text parts, concatenate them into one block.
	var text string
	for _, p := range cand.Content.Parts {
		if p == nil || p.Thought || p.Text == "" {
			continue
		}
		if text == "" {
			text = p.Text
		} else {
			text += "\n" + p.Text
		}
	}
	if text != "" {
		sr.Blocks = []string{text}
	}
	return sr
}

func newGoogleModels(ctx context.Context, cfg Config) (*genai.Models, error) {
	cc := &genai.ClientConfig{
		APIKey: cfg.GoogleAPIKey,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.GoogleBaseURL,
		},
	}
	vertex := cfg.GoogleBackend == GoogleBackendVertex ||
		(cfg.GoogleBackend == GoogleBackendAuto && cfg.GoogleProject != "" && cfg.GoogleLocation != "")
	if vertex {
		if cfg.GoogleProject == "" || cfg.GoogleLocation == "" {
			return nil, errors.New("tactic: GoogleProject and GoogleLocation are required for Vertex AI")
		}
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.GoogleProject
		cc.Location = cfg.GoogleLocation
	} else {
		if cfg.GoogleAPIKey == "" {
			return nil, errors.New("tactic: Google API key is required to use ProviderGoogle")
		}
		cc.Backend = genai.BackendGeminiAPI
	}
	if hc := cfg.httpClient(); hc != nil {
		cc.HTTPClient = hc
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return gc.Models, nil
}
