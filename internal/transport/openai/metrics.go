package openai

import (
	"time"

	"github.com/kailas-cloud/analyst/internal/domain/conversation"
	"github.com/kailas-cloud/analyst/internal/metrics"
)

func recordModelRequest(model, status string, d time.Duration) {
	metrics.LLMRequestsTotal.WithLabelValues(model, status).Inc()
	if status == "success" {
		metrics.LLMRequestDuration.WithLabelValues(model).Observe(d.Seconds())
	}
}

func recordModelUsage(model string, resp conversation.Response) {
	metrics.LLMStopReasonsTotal.WithLabelValues(model, resp.RawStop).Inc()
	if resp.Usage.InputTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(model, "input").Add(float64(resp.Usage.InputTokens))
	}
	if resp.Usage.OutputTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(model, "output").Add(float64(resp.Usage.OutputTokens))
	}
}
