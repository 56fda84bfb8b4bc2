package tracing

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Guarded is a fire-and-forget front for a Sink: errors and panics are logged
// at debug level and swallowed.
type Guarded struct {
	sink   Sink
	logger *zap.Logger
}

// Safe wraps sink. A nil sink becomes Nop.
func Safe(sink Sink, logger *zap.Logger) *Guarded {
	if sink == nil {
		sink = Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guarded{sink: sink, logger: logger}
}

// Start opens a span.
func (g *Guarded) Start(ctx context.Context, runID, name string, kind Kind, inputs map[string]any, parentID string) {
	err := g.call(func() error {
		return g.sink.Start(ctx, runID, name, kind, inputs, parentID)
	})
	if err != nil {
		g.logger.Debug("Trace start failed",
			zap.String("run_id", runID),
			zap.String("name", name),
			zap.Error(err),
		)
	}
}

// End closes a span.
func (g *Guarded) End(ctx context.Context, runID string, outputs map[string]any) {
	if err := g.call(func() error { return g.sink.End(ctx, runID, outputs) }); err != nil {
		g.logger.Debug("Trace end failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func (g *Guarded) call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trace sink panic: %v", r)
		}
	}()
	return fn()
}
