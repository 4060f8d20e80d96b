// Package metrics provides Prometheus metrics for evaluation runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"callqa/internal/evaluator"
)

const namespace = "callqa"

// Metrics holds the run metrics. Each instance owns its registry so runs and
// tests never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	EvaluationsTotal   *prometheus.CounterVec
	StageResultsTotal  *prometheus.CounterVec
	VerdictsTotal      *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	LastRunTimestamp   prometheus.Gauge
}

// NewMetrics creates and registers all metrics on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		EvaluationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of evaluated call records by outcome",
		}, []string{"outcome"}),
		StageResultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Total number of pipeline stage results by stage and status",
		}, []string{"stage", "status"}),
		VerdictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Total number of verdicts emitted by criterion and confidence",
		}, []string{"criterion", "probability"}),
		EvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of a single call evaluation in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the last run finished",
		}),
	}
}

// Registry returns the registry holding the metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveEvaluation records one completed evaluation
func (m *Metrics) ObserveEvaluation(eval evaluator.Evaluation, elapsed time.Duration) {
	outcome := "scored"
	if eval.Terminated() {
		outcome = "terminal"
	}
	m.EvaluationsTotal.WithLabelValues(outcome).Inc()

	for _, stage := range eval.Stages {
		m.StageResultsTotal.WithLabelValues(string(stage.Stage), string(stage.Status)).Inc()
	}
	for key, v := range eval.Verdicts {
		m.VerdictsTotal.WithLabelValues(key, string(v.Probability)).Inc()
	}
	m.EvaluationDuration.Observe(elapsed.Seconds())
}

// MarkRunFinished stamps the completion time of a run
func (m *Metrics) MarkRunFinished(at time.Time) {
	m.LastRunTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile exports the metrics in the node-exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
