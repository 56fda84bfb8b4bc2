package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// questionLogLen caps the question text attached to request logs.
const questionLogLen = 80

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithQuestion returns a context whose logger tags every line with the
// question being answered, cut to its first 80 runes.
func WithQuestion(ctx context.Context, question string) context.Context {
	if r := []rune(question); len(r) > questionLogLen {
		question = string(r[:questionLogLen]) + "..."
	}
	return ContextWithLogger(ctx, FromContext(ctx).With(zap.String("question", question)))
}
