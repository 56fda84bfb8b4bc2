package analyst

import (
	"context"

	"github.com/kailas-cloud/analyst/internal/tracing"
)

// Span kinds passed to TraceSink.Start.
const (
	SpanChain = string(tracing.KindChain)
	SpanLLM   = string(tracing.KindLLM)
	SpanTool  = string(tracing.KindTool)
)

// TraceSink receives span lifecycle events for every question.
//
// Each question opens one chain span, one llm span per model call and one
// tool span per search, parented to the chain span. parentID is empty for the
// chain span.
type TraceSink interface {
	Start(ctx context.Context, runID, name, kind string, inputs map[string]any, parentID string) error
	End(ctx context.Context, runID string, outputs map[string]any) error
}

type sinkAdapter struct {
	inner TraceSink
}

func (a sinkAdapter) Start(
	ctx context.Context, runID, name string, kind tracing.Kind, inputs map[string]any, parentID string,
) error {
	return a.inner.Start(ctx, runID, name, string(kind), inputs, parentID) //nolint:wrapcheck // transparent adapter
}

func (a sinkAdapter) End(ctx context.Context, runID string, outputs map[string]any) error {
	return a.inner.End(ctx, runID, outputs) //nolint:wrapcheck // transparent adapter
}
