package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("lexigrade", reg)

	m.AnalysesTotal.WithLabelValues("proficiency", "heuristic", "success").Inc()
	m.GrammarIssuesTotal.WithLabelValues("spelling").Add(3)
	m.EnhancementsTotal.WithLabelValues("success").Inc()
	m.ModelFallbacksTotal.WithLabelValues("proficiency").Inc()
	m.ObserveDuration(context.Background(), "proficiency", 120*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	assert.True(t, names["lexigrade_analyses_total"])
	assert.True(t, names["lexigrade_analysis_duration_seconds"])
	assert.True(t, names["lexigrade_grammar_issues_total"])
	assert.True(t, names["lexigrade_enhancements_total"])
	assert.True(t, names["lexigrade_model_fallbacks_total"])
}

func TestMetricsEndpointExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("lexigrade", reg)
	m.AnalysesTotal.WithLabelValues("complexity", "trained", "success").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "lexigrade_analyses_total"))
	assert.True(t, strings.Contains(body, `kind="complexity"`))
}

func TestObserveDurationWithoutSpan(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("lexigrade", reg)

	// No span in context: plain observation, no exemplar panic.
	m.ObserveDuration(context.Background(), "proficiency", time.Second)

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != "lexigrade_analysis_duration_seconds" {
			continue
		}
		require.Len(t, f.GetMetric(), 1)
		assert.Equal(t, uint64(1), f.GetMetric()[0].GetHistogram().GetSampleCount())
		return
	}
	t.Fatal("histogram not found in gathered metrics")
}
