package tactic

import (
	"context"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type fakeAnthropic struct {
	params anthropic.MessageNewParams
	msg    *anthropic.Message
	err    error
}

func (f *fakeAnthropic) New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	f.params = body
	return f.msg, f.err
}

func TestAnthropic_Text(t *testing.T) {
	f := &fakeAnthropic{msg: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "```lean\nsimp"},
			{Type: "text", Text: "\n```"},
		},
		StopReason: anthropic.StopReasonEndTurn,
		Usage:      anthropic.Usage{InputTokens: 20, OutputTokens: 7},
	}}
	reply, err := NewAnthropicBackend(f).GenerateText(context.Background(), Call{
		Model:           "claude-3-opus",
		Input:           "prompt",
		MaxOutputTokens: 512,
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.params.Model != anthropic.Model("claude-3-opus") || f.params.MaxTokens != 512 {
		t.Fatalf("params = %+v", f.params)
	}
	if len(f.params.Messages) != 1 || len(f.params.System) != 0 {
		t.Fatalf("messages = %+v, system = %+v", f.params.Messages, f.params.System)
	}
	if reply.Text != "```lean\nsimp\n```" || reply.Refusal != "" {
		t.Fatalf("reply = %+v", reply)
	}
	if *reply.PromptTokens != 20 || *reply.CompletionTokens != 7 {
		t.Fatalf("usage = %+v", reply)
	}
}

func TestAnthropic_Refusal(t *testing.T) {
	f := &fakeAnthropic{msg: &anthropic.Message{StopReason: anthropic.StopReason("refusal")}}
	reply, err := NewAnthropicBackend(f).GenerateText(context.Background(), Call{Model: "claude-3-opus"})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Refusal == "" {
		t.Fatal("expected refusal")
	}

	a, _ := NewTextAdapter(ModelProfile{Model: "claude-3-opus"}, NewAnthropicBackend(f), nil)
	if _, err := a.Generate(context.Background(), "⊢ True", ""); !errors.Is(err, ErrModelRefused) {
		t.Fatalf("error = %v, want ErrModelRefused", err)
	}
}

func TestAnthropic_Error(t *testing.T) {
	boom := errors.New("overloaded")
	_, err := NewAnthropicBackend(&fakeAnthropic{err: boom}).GenerateText(context.Background(), Call{Model: "claude-3-opus"})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v", err)
	}
}
