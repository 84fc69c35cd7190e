package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var admissionOutcomesTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "gatekeeper_admission_outcomes_total",
		Help: "Total admission decisions by outcome and priority class.",
	},
	[]string{"outcome", "priority"},
)

var queueLength = promauto.With(prometheus.DefaultRegisterer).NewGauge(
	prometheus.GaugeOpts{
		Name: "gatekeeper_wait_queue_length",
		Help: "Current number of operations waiting for capacity.",
	},
)

var resourceUsage = promauto.With(prometheus.DefaultRegisterer).NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "gatekeeper_resource_usage",
		Help: "Current ledger usage per resource dimension.",
	},
	[]string{"dimension"},
)

var loadPercent = promauto.With(prometheus.DefaultRegisterer).NewGauge(
	prometheus.GaugeOpts{
		Name: "gatekeeper_load_percent",
		Help: "Overall load as the maximum per-dimension utilization ratio (0-100).",
	},
)

var recoveryActionsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "gatekeeper_recovery_actions_total",
		Help: "Total recovery actions selected, by action and error severity.",
	},
	[]string{"action", "severity"},
)

var retryBackoffSeconds = promauto.With(prometheus.DefaultRegisterer).NewHistogram(
	prometheus.HistogramOpts{
		Name:    "gatekeeper_retry_backoff_seconds",
		Help:    "Backoff delays applied before retries.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	},
)

var cleanupReclaimsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "gatekeeper_cleanup_reclaims_total",
		Help: "Operations reclaimed by the periodic cleanup, by kind (stuck or stale_queued).",
	},
	[]string{"kind"},
)

// RecordAdmissionOutcome increments the admission decision counter.
func RecordAdmissionOutcome(outcome, priority string) {
	admissionOutcomesTotal.WithLabelValues(outcome, priority).Inc()
}

// SetQueueLength publishes the current wait queue depth.
func SetQueueLength(n int) {
	queueLength.Set(float64(n))
}

// SetResourceUsage publishes the current ledger totals.
func SetResourceUsage(memoryBytes, cpuPercent, bandwidthBytesPerSec, connections, operations float64) {
	resourceUsage.WithLabelValues("memory_bytes").Set(memoryBytes)
	resourceUsage.WithLabelValues("cpu_percent").Set(cpuPercent)
	resourceUsage.WithLabelValues("bandwidth_bytes_per_sec").Set(bandwidthBytesPerSec)
	resourceUsage.WithLabelValues("connections").Set(connections)
	resourceUsage.WithLabelValues("operations").Set(operations)
}

// SetLoadPercent publishes the overall load percentage.
func SetLoadPercent(v float64) {
	loadPercent.Set(v)
}

// RecordRecoveryAction increments the recovery action counter.
func RecordRecoveryAction(action, severity string) {
	recoveryActionsTotal.WithLabelValues(action, severity).Inc()
}

// ObserveRetryBackoff records a backoff delay in seconds.
func ObserveRetryBackoff(seconds float64) {
	retryBackoffSeconds.Observe(seconds)
}

// RecordCleanupReclaims counts operations reclaimed by cleanup.
func RecordCleanupReclaims(kind string, n int) {
	if n == 0 {
		return
	}

	cleanupReclaimsTotal.WithLabelValues(kind).Add(float64(n))
}
