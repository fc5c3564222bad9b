package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// MinWindowSize matches the detector's minimum history.
const MinWindowSize = 10

var supportedDrivers = map[string]bool{"sqlserver": true, "postgres": true}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() []error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Monitor.WindowSize < MinWindowSize {
		add("monitor.window_size", "must be at least %d, got %d", MinWindowSize, c.Monitor.WindowSize)
	}
	if c.Monitor.AnomalyZThreshold <= 0 {
		add("monitor.anomaly_z_threshold", "must be positive, got %g", c.Monitor.AnomalyZThreshold)
	}
	if c.Monitor.CheckIntervalSeconds <= 0 {
		add("monitor.check_interval_seconds", "must be positive, got %g", c.Monitor.CheckIntervalSeconds)
	}
	if c.Monitor.LongQueryThresholdMs < 0 {
		add("monitor.long_query_threshold_ms", "must not be negative, got %d", c.Monitor.LongQueryThresholdMs)
	}
	if c.Monitor.CPUCriticalThreshold <= 0 {
		add("monitor.cpu_critical_threshold", "must be positive, got %g", c.Monitor.CPUCriticalThreshold)
	}

	if !supportedDrivers[c.Database.Driver] {
		add("database.driver", "unsupported driver %q (expected sqlserver or postgres)", c.Database.Driver)
	}
	if c.Database.DSN == "" && c.Database.Host == "" {
		add("database.host", "host is required when dsn is not set")
	}
	if c.Database.ConnectTimeoutSeconds < 0 {
		add("database.connect_timeout_seconds", "must not be negative, got %d", c.Database.ConnectTimeoutSeconds)
	}

	if c.Alerting.Twilio.Enabled() && (c.Alerting.Twilio.FromPhone == "" || c.Alerting.Twilio.ToPhone == "") {
		add("alerting.twilio", "from_phone and to_phone are required when twilio credentials are set")
	}

	if c.Redis.Enabled() && c.Redis.MaxRecent <= 0 {
		add("redis.max_recent", "must be positive, got %d", c.Redis.MaxRecent)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", "%v", err)
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		add("logging.format", "must be console or json, got %q", c.Logging.Format)
	}

	return errs
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
