// Package metrics defines the service's Prometheus business metrics.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"
)

// BusinessMetrics holds the scoring-pipeline metrics.
type BusinessMetrics struct {
	// AnalysesTotal counts completed analyses by kind, classification
	// provenance, and outcome.
	AnalysesTotal *prometheus.CounterVec

	// AnalysisDuration observes end-to-end scoring latency by kind.
	AnalysisDuration *prometheus.HistogramVec

	// GrammarIssuesTotal counts detected grammar issues by type.
	GrammarIssuesTotal *prometheus.CounterVec

	// EnhancementsTotal counts AI enhancement outcomes.
	EnhancementsTotal *prometheus.CounterVec

	// ModelFallbacksTotal counts requests served by heuristics because the
	// trained artifact was unavailable.
	ModelFallbacksTotal *prometheus.CounterVec
}

// New registers the business metrics on the given registerer under the
// given namespace.
func New(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	factory := promauto.With(reg)

	return &BusinessMetrics{
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Completed analyses by kind, provenance, and status.",
		}, []string{"kind", "provenance", "status"}),

		AnalysisDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis latency by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),

		GrammarIssuesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grammar_issues_total",
			Help:      "Detected grammar issues by type.",
		}, []string{"type"}),

		EnhancementsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enhancements_total",
			Help:      "AI enhancement task outcomes.",
		}, []string{"status"}),

		ModelFallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_fallbacks_total",
			Help:      "Analyses scored heuristically because a trained model was unavailable.",
		}, []string{"kind"}),
	}
}

// NewDefault registers on the default Prometheus registry.
func NewDefault(namespace string) *BusinessMetrics {
	return New(namespace, prometheus.DefaultRegisterer)
}

// ObserveDuration records an analysis duration, attaching the current trace
// ID as an exemplar when the histogram supports it and a sampled span is
// present.
func (m *BusinessMetrics) ObserveDuration(ctx context.Context, kind string, d time.Duration) {
	obs := m.AnalysisDuration.WithLabelValues(kind)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsSampled() {
		if exemplarObs, ok := obs.(prometheus.ExemplarObserver); ok {
			exemplarObs.ObserveWithExemplar(d.Seconds(), prometheus.Labels{
				"trace_id": span.SpanContext().TraceID().String(),
			})
			return
		}
	}

	obs.Observe(d.Seconds())
}
