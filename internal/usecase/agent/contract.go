package agent

import (
	"context"

	"github.com/kailas-cloud/analyst/internal/usecase/tools"
)

// ToolExecutor runs one tool invocation.
type ToolExecutor interface {
	Execute(ctx context.Context, name, query string) (tools.Result, error)
}
