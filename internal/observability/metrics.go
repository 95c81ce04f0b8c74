// Package observability holds the Prometheus instrumentation shared by the
// agent loop and the HTTP transports. Metrics are process-global; callers
// record through the exported helpers rather than touching collectors.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	activeRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agent_active_runs",
		Help: "Number of orchestration runs currently in flight",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_runs_total",
		Help: "Total number of orchestration runs by outcome",
	}, []string{"status"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agent_run_duration_seconds",
		Help:    "Duration of orchestration runs in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	// Model turn metrics
	turnLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agent_model_turn_seconds",
		Help:    "Latency of individual model completion turns in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// Tool metrics
	toolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_tool_executions_total",
		Help: "Total number of tool executions by tool and outcome",
	}, []string{"tool", "status"})

	// Event metrics
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_stream_events_total",
		Help: "Total number of stream events delivered to consumers by kind",
	}, []string{"kind"})
)

// RecordRunStart marks a run as in flight.
func RecordRunStart() {
	activeRuns.Inc()
}

// RecordRunEnd marks a run finished with the given outcome and duration.
func RecordRunEnd(status string, seconds float64) {
	activeRuns.Dec()
	runsTotal.WithLabelValues(status).Inc()
	runDuration.Observe(seconds)
}

// RecordTurnLatency records one model completion turn.
func RecordTurnLatency(seconds float64) {
	turnLatency.Observe(seconds)
}

// RecordToolExecution records one tool invocation outcome.
func RecordToolExecution(tool string, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	toolExecutions.WithLabelValues(tool, status).Inc()
}

// RecordEvent records one delivered stream event.
func RecordEvent(kind string) {
	eventsTotal.WithLabelValues(kind).Inc()
}
