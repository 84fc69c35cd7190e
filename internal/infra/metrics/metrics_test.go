package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordAdmissionOutcome(t *testing.T) {
	before := testutil.ToFloat64(admissionOutcomesTotal.WithLabelValues("admitted", "high"))

	RecordAdmissionOutcome("admitted", "high")

	after := testutil.ToFloat64(admissionOutcomesTotal.WithLabelValues("admitted", "high"))
	require.InDelta(t, before+1, after, 0.001)
}

func TestQueueAndLoadGauges(t *testing.T) {
	SetQueueLength(7)
	require.InDelta(t, 7, testutil.ToFloat64(queueLength), 0.001)

	SetLoadPercent(42.5)
	require.InDelta(t, 42.5, testutil.ToFloat64(loadPercent), 0.001)
}

func TestSetResourceUsage(t *testing.T) {
	SetResourceUsage(1024, 55, 2048, 3, 2)

	require.InDelta(t, 1024, testutil.ToFloat64(resourceUsage.WithLabelValues("memory_bytes")), 0.001)
	require.InDelta(t, 55, testutil.ToFloat64(resourceUsage.WithLabelValues("cpu_percent")), 0.001)
	require.InDelta(t, 2048, testutil.ToFloat64(resourceUsage.WithLabelValues("bandwidth_bytes_per_sec")), 0.001)
	require.InDelta(t, 3, testutil.ToFloat64(resourceUsage.WithLabelValues("connections")), 0.001)
	require.InDelta(t, 2, testutil.ToFloat64(resourceUsage.WithLabelValues("operations")), 0.001)
}

func TestRecordCleanupReclaims(t *testing.T) {
	before := testutil.ToFloat64(cleanupReclaimsTotal.WithLabelValues("stuck"))

	RecordCleanupReclaims("stuck", 0)
	require.InDelta(t, before, testutil.ToFloat64(cleanupReclaimsTotal.WithLabelValues("stuck")), 0.001)

	RecordCleanupReclaims("stuck", 3)
	require.InDelta(t, before+3, testutil.ToFloat64(cleanupReclaimsTotal.WithLabelValues("stuck")), 0.001)
}
