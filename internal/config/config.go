package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/skillcoder/resource-gatekeeper/internal/logic/admission"
	"github.com/skillcoder/resource-gatekeeper/internal/logic/recovery"
)

type Config struct {
	LogLevel    string
	LogFormat   string
	HTTPPort    string
	MetricsPort string

	Limits          admission.Limits
	PollInterval    time.Duration
	CleanupSchedule string

	NetworkRecovery recovery.NetworkRecoveryConfig

	PingerInterval time.Duration
}

// Load reads configuration from the environment, applying defaults and
// validating bounds.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:        getEnvOrDefault(envKeyLogLevel, "info"),
		LogFormat:       getEnvOrDefault(envKeyLogFormat, "json"),
		HTTPPort:        getEnvOrDefault(envKeyHTTPPort, "8080"),
		MetricsPort:     getEnvOrDefault(envKeyMetricsPort, "9090"),
		CleanupSchedule: getEnvOrDefault(envKeyCleanupSchedule, defaultCleanupSchedule),
		NetworkRecovery: recovery.DefaultNetworkRecoveryConfig(),
	}

	var err error

	cfg.Limits, err = loadLimits()
	if err != nil {
		return nil, err
	}

	cfg.PollInterval, err = getDuration(envKeyPollInterval, time.Second, envMinPollInterval)
	if err != nil {
		return nil, err
	}

	cfg.PingerInterval, err = getDuration(envKeyPingerInterval, 10*time.Second, envMinPingerInterval)
	if err != nil {
		return nil, err
	}

	if err := loadNetworkRecovery(&cfg.NetworkRecovery); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadLimits() (admission.Limits, error) {
	limits := admission.Limits{}

	var err error

	limits.MemoryBytes, err = getInt64(envKeyMaxMemoryBytes, defaultMaxMemoryBytes)
	if err != nil {
		return limits, err
	}

	limits.CPUPercent, err = getFloat64(envKeyMaxCPUPercent, defaultMaxCPUPercent)
	if err != nil {
		return limits, err
	}

	limits.BandwidthBytesPerSec, err = getInt64(envKeyMaxBandwidth, defaultMaxBandwidth)
	if err != nil {
		return limits, err
	}

	limits.Connections, err = getInt64(envKeyMaxConnections, defaultMaxConnections)
	if err != nil {
		return limits, err
	}

	limits.MaxOperations, err = getInt64(envKeyMaxOperations, defaultMaxOperations)
	if err != nil {
		return limits, err
	}

	if limits.MemoryBytes <= 0 || limits.CPUPercent <= 0 ||
		limits.BandwidthBytesPerSec <= 0 || limits.Connections <= 0 ||
		limits.MaxOperations <= 0 {
		return limits, fmt.Errorf("resource limits must be positive: %+v", limits)
	}

	return limits, nil
}

func loadNetworkRecovery(nc *recovery.NetworkRecoveryConfig) error {
	var err error

	maxRetries, err := getInt64(envKeyNetMaxRetries, int64(nc.MaxRetries))
	if err != nil {
		return err
	}

	nc.MaxRetries = int(maxRetries)

	nc.BaseDelay, err = getDuration(envKeyNetBaseDelay, nc.BaseDelay, 0)
	if err != nil {
		return err
	}

	nc.MaxDelay, err = getDuration(envKeyNetMaxDelay, nc.MaxDelay, 0)
	if err != nil {
		return err
	}

	nc.TimeoutMultiplier, err = getFloat64(envKeyNetTimeoutMultiplier, nc.TimeoutMultiplier)
	if err != nil {
		return err
	}

	if v := os.Getenv(envKeyNetExponential); v != "" {
		nc.ExponentialBackoff, err = strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envKeyNetExponential, err)
		}
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}

func getInt64(key string, defaultValue int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return parsed, nil
}

func getFloat64(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return parsed, nil
}

func getDuration(key string, defaultValue, minValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	if parsed < minValue {
		return 0, fmt.Errorf("%s must be at least %s, got %s", key, minValue, parsed)
	}

	return parsed, nil
}
