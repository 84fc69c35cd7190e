package config

import "time"

// Env key constants. All gatekeeper configuration env vars use GATEKEEPER_
// prefix; duration values require explicit units (e.g. 5m, 40s, 2h).

// Log level: debug, info, warn, error.
const envKeyLogLevel = "GATEKEEPER_LOG_LEVEL"

// Log format: json or text.
const envKeyLogFormat = "GATEKEEPER_LOG_FORMAT"

// Port for health/readiness HTTP server.
const envKeyHTTPPort = "GATEKEEPER_HTTP_PORT"

// Port for Prometheus metrics (GET /metrics).
const envKeyMetricsPort = "GATEKEEPER_METRICS_PORT"

// Resource ceilings for admission.
const (
	envKeyMaxMemoryBytes  = "GATEKEEPER_MAX_MEMORY_BYTES"
	envKeyMaxCPUPercent   = "GATEKEEPER_MAX_CPU_PERCENT"
	envKeyMaxBandwidth    = "GATEKEEPER_MAX_BANDWIDTH_BYTES_PER_SEC"
	envKeyMaxConnections  = "GATEKEEPER_MAX_CONNECTIONS"
	envKeyMaxOperations   = "GATEKEEPER_MAX_OPERATIONS"
	defaultMaxMemoryBytes = int64(1 << 30) // 1GiB
	defaultMaxCPUPercent  = 80.0
	defaultMaxBandwidth   = int64(100 << 20) // 100MB/s
	defaultMaxConnections = int64(50)
	defaultMaxOperations  = int64(10)
)

// Safety-net re-check period for the wait queue. Units: ms, s (e.g. 1s).
const (
	envKeyPollInterval = "GATEKEEPER_POLL_INTERVAL"
	envMinPollInterval = 100 * time.Millisecond
)

// Cron spec (five-field, UTC) for the periodic cleanup of stuck and
// abandoned operations.
const (
	envKeyCleanupSchedule  = "GATEKEEPER_CLEANUP_SCHEDULE"
	defaultCleanupSchedule = "*/5 * * * *"
)

// Network recovery policy.
const (
	envKeyNetMaxRetries        = "GATEKEEPER_NET_MAX_RETRIES"
	envKeyNetBaseDelay         = "GATEKEEPER_NET_BASE_DELAY"
	envKeyNetMaxDelay          = "GATEKEEPER_NET_MAX_DELAY"
	envKeyNetTimeoutMultiplier = "GATEKEEPER_NET_TIMEOUT_MULTIPLIER"
	envKeyNetExponential       = "GATEKEEPER_NET_EXPONENTIAL_BACKOFF"
)

// Pinger check interval. Units: s, m, h (e.g. 10s, 1m).
const (
	envKeyPingerInterval = "GATEKEEPER_PINGER_INTERVAL"
	envMinPingerInterval = time.Second
)
