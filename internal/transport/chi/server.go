// Package chi is the HTTP API: ask a question, list sample questions, health and metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/analyst/internal/domain"
	logpkg "github.com/kailas-cloud/analyst/internal/logger"
	"github.com/kailas-cloud/analyst/internal/usecase/agent"
	healthuc "github.com/kailas-cloud/analyst/internal/usecase/health"
)

// clientClosedRequest is the non-standard status logged when the caller goes away.
const clientClosedRequest = 499

const maxQuestionBytes = 8 << 10

// Asker answers one question.
type Asker interface {
	Run(ctx context.Context, question string) (agent.Result, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the question answering API.
type Server struct {
	asker         Asker
	health        HealthChecker
	logger        *zap.Logger
	samples       []string
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(asker Asker, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		asker:   asker,
		health:  health,
		logger:  logger,
		samples: SampleQuestions,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuestion, http.StatusBadRequest, CodeValidation),
		sentinelHandler(domain.ErrModelTimeout, http.StatusGatewayTimeout, CodeTimeout),
		sentinelHandler(domain.ErrRetrievalTimeout, http.StatusGatewayTimeout, CodeTimeout),
		sentinelHandler(domain.ErrModelProviderError, http.StatusBadGateway, CodeModelProvider),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProvider),
		sentinelHandler(context.Canceled, clientClosedRequest, CodeCanceled),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r gochi.Router) {
	r.Post("/v1/ask", s.Ask)
	r.Get("/v1/samples", s.Samples)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "Question is required")
		return
	}

	ctx := logpkg.WithQuestion(r.Context(), question)
	start := time.Now()
	res, err := s.asker.Run(ctx, question)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}

	sources := buildSources(res.Chunks)
	searches := buildSearches(res.Trace)
	elapsed := math.Round(time.Since(start).Seconds()*10) / 10

	logpkg.FromContext(ctx).Info("Question answered",
		zap.String("run_id", res.RunID),
		zap.String("state", string(res.Status)),
		zap.Int("iterations", res.Iterations),
		zap.Int("sources", len(sources)),
		zap.Float64("elapsed", elapsed),
	)

	writeJSON(w, http.StatusOK, AskResponse{
		RunID:      res.RunID,
		Answer:     res.Answer,
		State:      string(res.Status),
		Iterations: res.Iterations,
		Elapsed:    elapsed,
		Sources:    sources,
		Searches:   searches,
		Counts:     Counts{Sources: len(sources), Searches: len(searches)},
	})
}

// Samples handles GET /v1/samples.
func (s *Server) Samples(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SamplesResponse{Questions: s.samples})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
		Chunks: report.Chunks,
		Corpus: report.Corpus,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuestion,
		domain.ErrModelTimeout,
		domain.ErrRetrievalTimeout,
		domain.ErrModelProviderError,
		domain.ErrEmbeddingProviderError,
		context.Canceled,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := logpkg.FromContext(ctx)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}
