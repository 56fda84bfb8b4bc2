package conversation

import (
	"context"

	"github.com/kailas-cloud/analyst/internal/domain/tool"
)

// StopReason classifies why the model stopped generating.
type StopReason int

const (
	// StopOther covers length limits, content filters and unrecognized reasons.
	StopOther StopReason = iota
	// StopFinal means the model produced its answer.
	StopFinal
	// StopToolUse means the model requested tool invocations.
	StopToolUse
)

func (s StopReason) String() string {
	switch s {
	case StopFinal:
		return "end_turn"
	case StopToolUse:
		return "tool_use"
	default:
		return "other"
	}
}

// Usage is token accounting for one model call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Request is a single model call.
type Request struct {
	System string
	Tools  []tool.Definition
	Turns  []Turn
}

// Response is the model's reply.
type Response struct {
	Stop     StopReason
	Segments []Segment
	Usage    Usage
	// RawStop is the provider's stop reason, kept for logging.
	RawStop string
}

// Model performs one inference call.
type Model interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
}
