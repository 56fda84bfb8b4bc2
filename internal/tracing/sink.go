// Package tracing records agent runs as nested spans: one chain span per
// question, an llm span per model call and a tool span per invocation.
package tracing

import (
	"context"
	"errors"
)

// Kind classifies a span.
type Kind string

const (
	KindChain Kind = "chain"
	KindLLM   Kind = "llm"
	KindTool  Kind = "tool"
)

// Span names and payload keys shared by sinks and the agent.
const (
	RootSpanName = "10k_rag_agent"
)

var (
	// ErrUnknownSpan is returned when ending or parenting to a span that was never started.
	ErrUnknownSpan = errors.New("unknown span")
	// ErrDuplicateSpan is returned when a run id is started twice.
	ErrDuplicateSpan = errors.New("duplicate span")
)

// Sink receives span lifecycle events. Implementations may fail; callers wrap
// sinks with Safe so failures never reach the agent.
type Sink interface {
	Start(ctx context.Context, runID, name string, kind Kind, inputs map[string]any, parentID string) error
	End(ctx context.Context, runID string, outputs map[string]any) error
}

// Nop discards every event.
type Nop struct{}

// Start implements Sink.
func (Nop) Start(context.Context, string, string, Kind, map[string]any, string) error { return nil }

// End implements Sink.
func (Nop) End(context.Context, string, map[string]any) error { return nil }
