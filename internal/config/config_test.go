package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 60, cfg.Monitor.WindowSize)
	assert.Equal(t, 2.0, cfg.Monitor.AnomalyZThreshold)
	assert.Equal(t, 10*time.Second, cfg.Monitor.CheckInterval())
	assert.Equal(t, 5000, cfg.Monitor.LongQueryThresholdMs)
	assert.Equal(t, 90.0, cfg.Monitor.CPUCriticalThreshold)

	assert.Equal(t, "sqlserver", cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "master", cfg.Database.Name)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout())

	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Alerting.Twilio.Enabled())
	assert.Equal(t, "monitor.log", cfg.Logging.File)

	assert.Empty(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		modifyFn  func(*Config)
		wantField string
	}{
		{"window too small", func(c *Config) { c.Monitor.WindowSize = 9 }, "monitor.window_size"},
		{"zero threshold", func(c *Config) { c.Monitor.AnomalyZThreshold = 0 }, "monitor.anomaly_z_threshold"},
		{"zero interval", func(c *Config) { c.Monitor.CheckIntervalSeconds = 0 }, "monitor.check_interval_seconds"},
		{"negative long query threshold", func(c *Config) { c.Monitor.LongQueryThresholdMs = -1 }, "monitor.long_query_threshold_ms"},
		{"zero cpu threshold", func(c *Config) { c.Monitor.CPUCriticalThreshold = 0 }, "monitor.cpu_critical_threshold"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"missing host", func(c *Config) { c.Database.Host = "" }, "database.host"},
		{"twilio without phones", func(c *Config) {
			c.Alerting.Twilio.AccountSID = "AC123"
			c.Alerting.Twilio.AuthToken = "token"
		}, "alerting.twilio"},
		{"redis without list size", func(c *Config) {
			c.Redis.Addr = "localhost:6379"
			c.Redis.MaxRecent = 0
		}, "redis.max_recent"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modifyFn(cfg)

			errs := cfg.Validate()
			require.Len(t, errs, 1)
			var vErr *ValidationError
			require.ErrorAs(t, errs[0], &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestDSNOverridesHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Host = ""
	cfg.Database.DSN = "postgres://monitor@db/postgres"
	assert.Empty(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentinel.yaml")
	content := `
monitor:
  window_size: 30
  anomaly_z_threshold: 3.5
  check_interval_seconds: 0.5
database:
  driver: postgres
  host: db.internal
  port: 5432
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Monitor.WindowSize)
	assert.Equal(t, 3.5, cfg.Monitor.AnomalyZThreshold)
	assert.Equal(t, 500*time.Millisecond, cfg.Monitor.CheckInterval())
	assert.Equal(t, 5000, cfg.Monitor.LongQueryThresholdMs)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Monitor, cfg.Monitor)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("SENTINEL_MONITOR_WINDOW_SIZE", "45")
	t.Setenv("DB_SERVER", "legacy-host")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T/B/X")
	t.Setenv("CHECK_INTERVAL_SECONDS", "15")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 45, cfg.Monitor.WindowSize)
	assert.Equal(t, "legacy-host", cfg.Database.Host)
	assert.Equal(t, "https://hooks.slack.com/services/T/B/X", cfg.Alerting.SlackWebhookURL)
	assert.Equal(t, 15*time.Second, cfg.Monitor.CheckInterval())
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoadPrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("SENTINEL_DATABASE_HOST", "primary-host")
	t.Setenv("DB_SERVER", "legacy-host")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "primary-host", cfg.Database.Host)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("SENTINEL_MONITOR_WINDOW_SIZE", "3")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitor.window_size")
}
