// Package tools executes model tool invocations against the hybrid retriever.
package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/analyst/internal/domain"
	"github.com/kailas-cloud/analyst/internal/domain/tool"
	"github.com/kailas-cloud/analyst/internal/metrics"
	"github.com/kailas-cloud/analyst/internal/usecase/retrieval"
)

// Fixed tool output strings.
const (
	NoContent = "No relevant content found."
	delimiter = "\n\n---\n\n"
	missing   = "?"
)

// Searcher runs a hybrid query.
type Searcher interface {
	Search(ctx context.Context, q retrieval.Query) ([]domain.Chunk, error)
}

// Result is the outcome of one invocation. Content goes back to the model,
// Chunks stay with the caller.
type Result struct {
	Content string
	Chunks  []domain.Chunk
}

// Executor maps tool names onto category-filtered searches.
type Executor struct {
	searcher Searcher
	logger   *zap.Logger
}

// New creates a tool executor.
func New(searcher Searcher, logger *zap.Logger) *Executor {
	return &Executor{searcher: searcher, logger: logger}
}

// Execute runs the named tool. An unknown name yields an "Unknown tool" result
// with no chunks and no error. An empty filtered search is retried without the
// category filter. Retrieval errors, including a searcher panic, are returned
// to the caller.
func (e *Executor) Execute(ctx context.Context, name, query string) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.AgentToolCallsTotal.WithLabelValues(name, "error").Inc()
			e.logger.Error("Tool panicked", zap.String("tool", name), zap.Any("panic", r))
			res, err = Result{}, fmt.Errorf("%s panicked: %v", name, r)
		}
	}()

	t, err := tool.Parse(name)
	if err != nil {
		metrics.AgentToolCallsTotal.WithLabelValues("unknown", "unknown").Inc()
		return Result{Content: "Unknown tool: " + name}, nil
	}

	chunks, err := e.searcher.Search(ctx, retrieval.Query{Text: query, Category: t.Category()})
	if err != nil {
		metrics.AgentToolCallsTotal.WithLabelValues(string(t), "error").Inc()
		return Result{}, fmt.Errorf("%s: %w", t, err)
	}

	if len(chunks) == 0 {
		e.logger.Debug("Filtered search empty, retrying unfiltered",
			zap.String("tool", string(t)),
			zap.String("query", query),
		)
		chunks, err = e.searcher.Search(ctx, retrieval.Query{Text: query})
		if err != nil {
			metrics.AgentToolCallsTotal.WithLabelValues(string(t), "error").Inc()
			return Result{}, fmt.Errorf("%s unfiltered: %w", t, err)
		}
	}

	if len(chunks) == 0 {
		metrics.AgentToolCallsTotal.WithLabelValues(string(t), "empty").Inc()
		return Result{Content: NoContent}, nil
	}

	metrics.AgentToolCallsTotal.WithLabelValues(string(t), "ok").Inc()
	return Result{Content: Format(chunks), Chunks: chunks}, nil
}

// Format renders chunks as numbered blocks with provenance headers.
func Format(chunks []domain.Chunk) string {
	if len(chunks) == 0 {
		return NoContent
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		var b strings.Builder
		b.WriteString("[")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("] Item ")
		b.WriteString(c.Meta(domain.MetaItemNumber, missing))
		b.WriteString(" | page ")
		b.WriteString(c.Meta(domain.MetaPage, missing))
		b.WriteString(" | ")
		b.WriteString(c.Meta(domain.MetaContentType, missing))
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(c.Content))
		parts[i] = b.String()
	}
	return strings.Join(parts, delimiter)
}
