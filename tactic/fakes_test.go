package tactic

import (
	"context"
	"sync"
)

// scriptedStructured replays replies in order; the last one repeats.
type scriptedStructured struct {
	mu      sync.Mutex
	replies []StructuredReply
	errs    []error
	calls   []Call
}

func (s *scriptedStructured) GenerateStructured(ctx context.Context, call Call) (StructuredReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.calls)
	s.calls = append(s.calls, call)
	if i < len(s.errs) && s.errs[i] != nil {
		return StructuredReply{}, s.errs[i]
	}
	if len(s.replies) == 0 {
		return StructuredReply{}, nil
	}
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i], nil
}

func (s *scriptedStructured) budgets() []int {
	out := make([]int, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.MaxOutputTokens
	}
	return out
}

// fixedText returns the same reply for every call.
type fixedText struct {
	reply TextReply
	err   error
	calls []Call
}

func (f *fixedText) GenerateText(ctx context.Context, call Call) (TextReply, error) {
	f.calls = append(f.calls, call)
	return f.reply, f.err
}

// blockingText waits for the context to end.
type blockingText struct{}

func (blockingText) GenerateText(ctx context.Context, call Call) (TextReply, error) {
	<-ctx.Done()
	return TextReply{}, ctx.Err()
}

func blocks(s ...string) StructuredReply { return StructuredReply{Blocks: s} }
