package tactic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicMessages is the subset of the SDK message service the backend calls.
type AnthropicMessages interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicBackend serves Claude models in text mode; one completion per call.
type AnthropicBackend struct {
	messages AnthropicMessages
}

func NewAnthropicBackend(messages AnthropicMessages) *AnthropicBackend {
	return &AnthropicBackend{messages: messages}
}

const anthropicStopRefusal = anthropic.StopReason("refusal")

func (b *AnthropicBackend) GenerateText(ctx context.Context, call Call) (TextReply, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(call.Model),
		MaxTokens: int64(call.MaxOutputTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(call.Input)),
		},
	}
	if strings.TrimSpace(call.System) != "" {
		params.System = []anthropic.TextBlockParam{{Text: call.System}}
	}
	if call.Temperature != nil {
		params.Temperature = anthropic.Float(*call.Temperature)
	}
	if call.TopP != nil {
		params.TopP = anthropic.Float(*call.TopP)
	}

	msg, err := b.messages.New(ctx, params)
	if err != nil {
		return TextReply{}, err
	}
	if msg == nil {
		return TextReply{}, nil
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	reply := TextReply{
		Text:             text.String(),
		PromptTokens:     intPtr(int(msg.Usage.InputTokens)),
		CompletionTokens: intPtr(int(msg.Usage.OutputTokens)),
	}
	if msg.StopReason == anthropicStopRefusal {
		reply.Refusal = "stop_reason refusal"
		if t := strings.TrimSpace(reply.Text); t != "" {
			reply.Refusal = t
		}
	}
	return reply, nil
}

func newAnthropicMessages(cfg Config) (AnthropicMessages, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, errors.New("tactic: Anthropic API key is required to use ProviderAnthropic")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.AnthropicAPIKey)}
	if cfg.AnthropicBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.AnthropicBaseURL))
	}
	if hc := cfg.httpClient(); hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}
	client := anthropic.NewClient(opts...)
	return &client.Messages, nil
}
