package tactic

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient is the subset of *openai.Client the OpenAI backends call.
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateCompletion(ctx context.Context, req openai.CompletionRequest) (openai.CompletionResponse, error)
}

// OpenAIChatBackend talks to the chat completions endpoint. It serves both
// adapter variants: strict json_schema output and plain text.
type OpenAIChatBackend struct {
	client OpenAIClient
}

func NewOpenAIChatBackend(client OpenAIClient) *OpenAIChatBackend {
	return &OpenAIChatBackend{client: client}
}

func (b *OpenAIChatBackend) GenerateStructured(ctx context.Context, call Call) (StructuredReply, error) {
	req := chatRequest(call)
	if len(call.Schema) > 0 {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   call.SchemaName,
				Schema: rawJSONSchema{m: call.Schema},
				Strict: true,
			},
		}
	}
	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return StructuredReply{}, err
	}

	reply := StructuredReply{
		PromptTokens:     intPtr(resp.Usage.PromptTokens),
		CompletionTokens: intPtr(resp.Usage.CompletionTokens),
	}
	if len(resp.Choices) == 0 {
		return reply, nil
	}
	choice := resp.Choices[0]
	reply.Incomplete = choice.FinishReason == openai.FinishReasonLength
	reply.Refusal = choiceRefusal(choice)
	if choice.Message.Content != "" {
		reply.Blocks = []string{choice.Message.Content}
	}
	return reply, nil
}

func (b *OpenAIChatBackend) GenerateText(ctx context.Context, call Call) (TextReply, error) {
	resp, err := b.client.CreateChatCompletion(ctx, chatRequest(call))
	if err != nil {
		return TextReply{}, err
	}
	reply := TextReply{
		PromptTokens:     intPtr(resp.Usage.PromptTokens),
		CompletionTokens: intPtr(resp.Usage.CompletionTokens),
	}
	if len(resp.Choices) == 0 {
		return reply, nil
	}
	reply.Text = resp.Choices[0].Message.Content
	reply.Refusal = choiceRefusal(resp.Choices[0])
	return reply, nil
}

func choiceRefusal(choice openai.ChatCompletionChoice) string {
	if choice.Message.Refusal != "" {
		return choice.Message.Refusal
	}
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "response withheld by content filter"
	}
	return ""
}

// chatRequest maps a Call onto a chat completion request. Temperature and
// TopP stay unset unless given: gpt-5 and o-series models reject them.
func chatRequest(call Call) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if strings.TrimSpace(call.System) != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: call.System,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: call.Input,
	})

	req := openai.ChatCompletionRequest{
		Model:               call.Model,
		Messages:            msgs,
		MaxCompletionTokens: call.MaxOutputTokens,
		ReasoningEffort:     call.ReasoningEffort,
	}
	if call.Temperature != nil {
		req.Temperature = float32(*call.Temperature)
	}
	if call.TopP != nil {
		req.TopP = float32(*call.TopP)
	}
	return req
}

// OpenAICompletionsBackend talks to the legacy completions endpoint, which is
// what OpenAI-compatible local servers expose for raw chat-template prompts.
type OpenAICompletionsBackend struct {
	client OpenAIClient
}

func NewOpenAICompletionsBackend(client OpenAIClient) *OpenAICompletionsBackend {
	return &OpenAICompletionsBackend{client: client}
}

func (b *OpenAICompletionsBackend) GenerateText(ctx context.Context, call Call) (TextReply, error) {
	req := openai.CompletionRequest{
		Model:     call.Model,
		Prompt:    call.Input,
		MaxTokens: call.MaxOutputTokens,
	}
	if call.Temperature != nil {
		req.Temperature = float32(*call.Temperature)
	}
	if call.TopP != nil {
		req.TopP = float32(*call.TopP)
	}
	resp, err := b.client.CreateCompletion(ctx, req)
	if err != nil {
		return TextReply{}, err
	}
	var reply TextReply
	// Local servers may omit usage.
	if resp.Usage != nil {
		reply.PromptTokens = intPtr(resp.Usage.PromptTokens)
		reply.CompletionTokens = intPtr(resp.Usage.CompletionTokens)
	}
	if len(resp.Choices) > 0 {
		reply.Text = resp.Choices[0].Text
	}
	return reply, nil
}

func newOpenAIClient(cfg Config) (*openai.Client, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("tactic: OpenAI API key is required to use ProviderOpenAI")
	}
	var oc openai.ClientConfig
	if strings.EqualFold(cfg.OpenAIAPIType, "azure") {
		if cfg.OpenAIBaseURL == "" {
			return nil, errors.New("tactic: OpenAIBaseURL is required for Azure")
		}
		oc = openai.DefaultAzureConfig(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if cfg.OpenAIAPIVersion != "" {
			oc.APIVersion = cfg.OpenAIAPIVersion
		}
	} else {
		oc = openai.DefaultConfig(cfg.OpenAIAPIKey)
		if cfg.OpenAIBaseURL != "" {
			oc.BaseURL = cfg.OpenAIBaseURL
		}
	}
	if cfg.OpenAIOrgID != "" {
		oc.OrgID = cfg.OpenAIOrgID
	}
	if hc := cfg.httpClient(); hc != nil {
		oc.HTTPClient = hc
	}
	return openai.NewClientWithConfig(oc), nil
}

// newLocalClient points go-openai at an OpenAI-compatible local server.
func newLocalClient(cfg Config) (*openai.Client, error) {
	if cfg.LocalBaseURL == "" {
		return nil, errors.New("tactic: LocalBaseURL is required to use ProviderLocal")
	}
	oc := openai.DefaultConfig(cfg.LocalAPIKey)
	oc.BaseURL = cfg.LocalBaseURL
	if hc := cfg.httpClient(); hc != nil {
		oc.HTTPClient = hc
	}
	return openai.NewClientWithConfig(oc), nil
}
