package metrics

import "github.com/prometheus/client_golang/prometheus"

// Agent and retrieval Prometheus metrics.
var (
	AgentRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "analyst",
			Name:      "agent_runs_total",
			Help:      "Agent runs by terminal status",
		},
		[]string{"status"},
	)

	AgentIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "analyst",
			Name:      "agent_iterations",
			Help:      "Model calls per agent run",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8},
		},
	)

	AgentToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "analyst",
			Name:      "agent_tool_calls_total",
			Help:      "Tool invocations executed by the agent",
		},
		[]string{"tool", "outcome"}, // "ok" / "empty" / "error" / "unknown"
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "analyst",
			Name:      "retrieval_duration_seconds",
			Help:      "Hybrid retrieval duration by stage",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"}, // "dense" / "sparse" / "total"
	)

	RetrievalDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "analyst",
			Name:      "retrieval_degraded_total",
			Help:      "Searches answered from the lexical index alone after a dense failure",
		},
	)
)

var agentMetricsRegistered bool

// RegisterAgentMetrics registers Prometheus agent and retrieval metrics. Must be called once from main.
func RegisterAgentMetrics() {
	if agentMetricsRegistered {
		return
	}
	prometheus.MustRegister(AgentRunsTotal)
	prometheus.MustRegister(AgentIterations)
	prometheus.MustRegister(AgentToolCallsTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RetrievalDegradedTotal)
	agentMetricsRegistered = true
}
