package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.NavigationStarted()
	m.NavigationStarted()
	m.FallbackStep("retry")
	m.SubmissionOutcome("network_error")
	m.StoreError("durable", "set")

	require.Equal(t, float64(2), testutil.ToFloat64(m.navigationAttempts))
	require.Equal(t, float64(1), testutil.ToFloat64(m.fallbackSteps.WithLabelValues("retry")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.submissionOutcomes.WithLabelValues("network_error")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.storeErrors.WithLabelValues("durable", "set")))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.NavigationStarted()
	m.FallbackStep("replace")
	m.Escalated()
	m.Arrived()
	m.SubmissionAttempt()
	m.SubmissionOutcome("success")
	m.StoreError("volatile", "get")
	m.Notification("info")
}
