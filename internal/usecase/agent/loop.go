// Package agent drives the tool-calling loop: the model is called, requested
// searches are executed, and their results are fed back until the model
// answers or the iteration budget runs out.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/analyst/internal/domain"
	"github.com/kailas-cloud/analyst/internal/domain/conversation"
	"github.com/kailas-cloud/analyst/internal/domain/tool"
	"github.com/kailas-cloud/analyst/internal/metrics"
	"github.com/kailas-cloud/analyst/internal/tracing"
)

// Loop defaults.
const (
	DefaultMaxIterations = 8                 // model calls per question
	DefaultModelTimeout  = 120 * time.Second // per model call
)

// Placeholder answers.
const (
	NoAnswer            = "No answer returned."
	MaxIterationsAnswer = "Max iterations reached."
)

const traceAnswerLen = 400

// Status is the terminal state of a run.
type Status string

const (
	StatusDone      Status = "DONE"
	StatusExhausted Status = "EXHAUSTED"
	StatusAborted   Status = "ABORTED"
)

// TraceEntry records one executed search.
type TraceEntry struct {
	Iteration int
	Tool      string
	Query     string
}

// Result is the outcome of one question. Chunks accumulate across iterations
// and may repeat.
type Result struct {
	RunID      string
	Answer     string
	Status     Status
	Chunks     []domain.Chunk
	Trace      []TraceEntry
	Iterations int
}

// Loop answers questions. It holds no per-question state and is safe for
// concurrent use.
type Loop struct {
	model        conversation.Model
	exec         ToolExecutor
	sink         *tracing.Guarded
	logger       *zap.Logger
	maxIter      int
	modelTimeout time.Duration
	system       string
}

// New creates an agent loop with the default prompt, cap, model timeout and a
// no-op trace sink.
func New(model conversation.Model, exec ToolExecutor, logger *zap.Logger) *Loop {
	return &Loop{
		model:        model,
		exec:         exec,
		sink:         tracing.Safe(tracing.Nop{}, logger),
		logger:       logger,
		maxIter:      DefaultMaxIterations,
		modelTimeout: DefaultModelTimeout,
		system:       DefaultSystemPrompt,
	}
}

// WithSink attaches a trace sink. Sink failures are logged and ignored.
func (l *Loop) WithSink(s tracing.Sink) *Loop {
	l.sink = tracing.Safe(s, l.logger)
	return l
}

// WithMaxIterations overrides the model call cap.
func (l *Loop) WithMaxIterations(n int) *Loop {
	if n > 0 {
		l.maxIter = n
	}
	return l
}

// WithModelTimeout bounds each model call. Zero keeps the default.
func (l *Loop) WithModelTimeout(d time.Duration) *Loop {
	if d > 0 {
		l.modelTimeout = d
	}
	return l
}

// WithSystemPrompt replaces the system prompt. Empty keeps the default.
func (l *Loop) WithSystemPrompt(p string) *Loop {
	if strings.TrimSpace(p) != "" {
		l.system = p
	}
	return l
}

// Run answers one question.
//
// Model failures and retrieval timeouts are returned as errors. Cancellation
// of ctx ends the run as ABORTED and returns ctx's error. The Result is
// populated in every case with whatever was gathered.
func (l *Loop) Run(ctx context.Context, question string) (Result, error) {
	if strings.TrimSpace(question) == "" {
		return Result{}, domain.ErrEmptyQuestion
	}

	r := &run{
		loop:   l,
		conv:   conversation.New(question),
		result: Result{RunID: uuid.NewString()},
	}
	r.logger = l.logger.With(zap.String("run_id", r.result.RunID))

	l.sink.Start(ctx, r.result.RunID, tracing.RootSpanName, tracing.KindChain,
		map[string]any{"question": question}, "")

	err := r.execute(ctx)

	metrics.AgentRunsTotal.WithLabelValues(string(r.result.Status)).Inc()
	metrics.AgentIterations.Observe(float64(r.result.Iterations))
	r.logger.Info("Agent run finished",
		zap.String("status", string(r.result.Status)),
		zap.Int("iterations", r.result.Iterations),
		zap.Int("searches", len(r.result.Trace)),
		zap.Error(err),
	)

	return r.result, err
}

// run is the state of one question.
type run struct {
	loop   *Loop
	conv   *conversation.Conversation
	result Result
	logger *zap.Logger
}

func (r *run) execute(ctx context.Context) error {
	counter := 0
	for {
		counter++
		if counter > r.loop.maxIter {
			r.finish(ctx, StatusExhausted, MaxIterationsAnswer, map[string]any{"answer": "max_iterations"})
			return nil
		}
		if err := ctx.Err(); err != nil {
			return r.abort(ctx, err)
		}

		resp, err := r.think(ctx, counter)
		if err != nil {
			if ctx.Err() != nil {
				return r.abort(ctx, ctx.Err())
			}
			r.fail(ctx, err)
			return err
		}

		if err := r.conv.AppendAssistant(resp.Segments); err != nil {
			r.finish(ctx, StatusAborted, NoAnswer, map[string]any{"answer": "none"})
			return nil
		}

		switch resp.Stop {
		case conversation.StopFinal:
			text, ok := conversation.FirstText(resp.Segments)
			if !ok {
				r.logger.Warn("Final reply without text", zap.Int("iteration", counter))
				r.finish(ctx, StatusAborted, NoAnswer, map[string]any{"answer": "none"})
				return nil
			}
			r.finish(ctx, StatusDone, text, map[string]any{
				"answer":     truncate(text, traceAnswerLen),
				"iterations": counter,
			})
			return nil

		case conversation.StopToolUse:
			invs := conversation.Invocations(resp.Segments)
			if !wellFormed(invs) {
				r.logger.Warn("Malformed tool request", zap.Int("iteration", counter))
				r.finish(ctx, StatusAborted, NoAnswer, map[string]any{"answer": "none"})
				return nil
			}
			results, err := r.act(ctx, counter, invs)
			if err != nil {
				if ctx.Err() != nil {
					return r.abort(ctx, ctx.Err())
				}
				r.fail(ctx, err)
				return err
			}
			if err := r.conv.AppendToolResults(results); err != nil {
				r.finish(ctx, StatusAborted, NoAnswer, map[string]any{"answer": "none"})
				return nil
			}

		default:
			r.logger.Warn("Unexpected stop reason",
				zap.String("stop_reason", resp.RawStop),
				zap.Int("iteration", counter),
			)
			r.finish(ctx, StatusAborted, NoAnswer, map[string]any{"answer": "none"})
			return nil
		}
	}
}

// think performs one model call inside its own llm span.
func (r *run) think(ctx context.Context, iteration int) (conversation.Response, error) {
	l := r.loop
	r.result.Iterations = iteration
	r.logger.Debug("Agent iteration", zap.Int("iteration", iteration))

	spanID := uuid.NewString()
	l.sink.Start(ctx, spanID, fmt.Sprintf("llm_%d", iteration), tracing.KindLLM,
		map[string]any{"model": l.model.Name(), "iteration": iteration}, r.result.RunID)

	cctx := ctx
	if l.modelTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, l.modelTimeout)
		defer cancel()
	}

	resp, err := l.model.Complete(cctx, conversation.Request{
		System: l.system,
		Tools:  tool.Definitions(),
		Turns:  r.conv.Turns(),
	})
	if err != nil {
		l.sink.End(ctx, spanID, map[string]any{"error": err.Error()})
		if ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return conversation.Response{}, fmt.Errorf("%w after %s: %w", domain.ErrModelTimeout, l.modelTimeout, err)
		}
		return conversation.Response{}, err //nolint:wrapcheck // model errors propagate verbatim
	}

	l.sink.End(ctx, spanID, map[string]any{
		"stop_reason":   resp.Stop.String(),
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
	})
	return resp, nil
}

// act executes every invocation in order and returns one result per invocation.
func (r *run) act(ctx context.Context, iteration int, invs []conversation.Invocation) ([]conversation.ToolResult, error) {
	l := r.loop
	results := make([]conversation.ToolResult, 0, len(invs))

	for _, inv := range invs {
		query, _ := inv.Query()
		r.result.Trace = append(r.result.Trace, TraceEntry{Iteration: iteration, Tool: inv.Name, Query: query})

		spanID := uuid.NewString()
		l.sink.Start(ctx, spanID, inv.Name, tracing.KindTool,
			map[string]any{"query": query, "tool": inv.Name}, r.result.RunID)

		res, err := l.exec.Execute(ctx, inv.Name, query)
		if err != nil {
			l.sink.End(ctx, spanID, map[string]any{"num_chunks": 0, "error": err.Error()})
			if fatalToolError(ctx, err) {
				return nil, err
			}
			r.logger.Warn("Tool failed", zap.String("tool", inv.Name), zap.String("query", query), zap.Error(err))
			res.Content = "Search failed: " + err.Error()
		} else {
			l.sink.End(ctx, spanID, map[string]any{"num_chunks": len(res.Chunks)})
		}

		r.result.Chunks = append(r.result.Chunks, res.Chunks...)
		r.logger.Info("Tool executed",
			zap.String("tool", inv.Name),
			zap.String("query", query),
			zap.Int("chunks", len(res.Chunks)),
		)
		results = append(results, conversation.ToolResult{InvocationID: inv.ID, Content: res.Content})
	}
	return results, nil
}

func (r *run) finish(ctx context.Context, status Status, answer string, outputs map[string]any) {
	r.result.Status = status
	r.result.Answer = answer
	r.loop.sink.End(ctx, r.result.RunID, outputs)
}

func (r *run) abort(ctx context.Context, err error) error {
	r.finish(ctx, StatusAborted, NoAnswer, map[string]any{"answer": "none", "error": err.Error()})
	return fmt.Errorf("agent aborted: %w", err)
}

func (r *run) fail(ctx context.Context, err error) {
	r.result.Status = StatusAborted
	r.loop.sink.End(ctx, r.result.RunID, map[string]any{"error": err.Error()})
}

// wellFormed reports whether a tool-use reply carries usable invocations.
// Arguments that failed to decode arrive as a nil Input. Every invocation
// needs a string query.
func wellFormed(invs []conversation.Invocation) bool {
	if len(invs) == 0 {
		return false
	}
	for _, inv := range invs {
		if inv.ID == "" || inv.Name == "" || inv.Input == nil {
			return false
		}
		if _, ok := inv.Query(); !ok {
			return false
		}
	}
	return true
}

func fatalToolError(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, domain.ErrRetrievalTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
