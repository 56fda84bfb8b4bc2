package tracing

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kailas-cloud/analyst/internal/tracing"

// Attribute keys.
const (
	AttrRunID      = "analyst.run.id"
	AttrRunKind    = "analyst.run.kind"
	attrInputPfx   = "analyst.input."
	attrOutputPfx  = "analyst.output."
	outputErrorKey = "error"
)

// OTel maps run ids onto OpenTelemetry spans. Safe for concurrent runs.
type OTel struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewOTel creates a sink backed by the given provider.
func NewOTel(tp trace.TracerProvider) *OTel {
	return &OTel{
		tracer: tp.Tracer(instrumentationName),
		spans:  make(map[string]trace.Span),
	}
}

// Start implements Sink. A parentID must name a span that is still open.
func (o *OTel) Start(ctx context.Context, runID, name string, kind Kind, inputs map[string]any, parentID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.spans[runID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSpan, runID)
	}

	parentCtx := ctx
	if parentID != "" {
		parent, ok := o.spans[parentID]
		if !ok {
			return fmt.Errorf("%w: parent %s", ErrUnknownSpan, parentID)
		}
		parentCtx = trace.ContextWithSpan(ctx, parent)
	}

	attrs := make([]attribute.KeyValue, 0, len(inputs)+2)
	attrs = append(attrs,
		attribute.String(AttrRunID, runID),
		attribute.String(AttrRunKind, string(kind)),
	)
	attrs = append(attrs, toAttributes(attrInputPfx, inputs)...)

	_, span := o.tracer.Start(parentCtx, name,
		trace.WithSpanKind(spanKind(kind)),
		trace.WithAttributes(attrs...),
	)
	o.spans[runID] = span
	return nil
}

// End implements Sink. An "error" output marks the span as failed.
func (o *OTel) End(_ context.Context, runID string, outputs map[string]any) error {
	o.mu.Lock()
	span, ok := o.spans[runID]
	delete(o.spans, runID)
	o.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSpan, runID)
	}

	span.SetAttributes(toAttributes(attrOutputPfx, outputs)...)
	if msg, ok := outputs[outputErrorKey]; ok {
		span.SetStatus(codes.Error, fmt.Sprint(msg))
	}
	span.End()
	return nil
}

// Open reports the number of spans started but not ended.
func (o *OTel) Open() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.spans)
}

func spanKind(k Kind) trace.SpanKind {
	if k == KindLLM {
		return trace.SpanKindClient
	}
	return trace.SpanKindInternal
}

func toAttributes(prefix string, m map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(m))
	for k, v := range m {
		key := prefix + k
		switch val := v.(type) {
		case string:
			out = append(out, attribute.String(key, val))
		case int:
			out = append(out, attribute.Int(key, val))
		case int64:
			out = append(out, attribute.Int64(key, val))
		case float64:
			out = append(out, attribute.Float64(key, val))
		case bool:
			out = append(out, attribute.Bool(key, val))
		case []string:
			out = append(out, attribute.StringSlice(key, val))
		default:
			out = append(out, attribute.String(key, fmt.Sprint(val)))
		}
	}
	return out
}
