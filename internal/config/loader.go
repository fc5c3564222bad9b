package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "SENTINEL"

// legacyEnv maps config keys to the environment names used by earlier
// deployments of the monitor. The SENTINEL_* name always wins.
var legacyEnv = map[string]string{
	"database.host":                   "DB_SERVER",
	"database.name":                   "DB_NAME",
	"database.user":                   "DB_USER",
	"database.password":               "DB_PASSWORD",
	"alerting.slack_webhook_url":      "SLACK_WEBHOOK_URL",
	"alerting.twilio.account_sid":     "TWILIO_ACCOUNT_SID",
	"alerting.twilio.auth_token":      "TWILIO_AUTH_TOKEN",
	"alerting.twilio.from_phone":      "TWILIO_FROM_PHONE",
	"alerting.twilio.to_phone":        "TWILIO_TO_PHONE",
	"monitor.check_interval_seconds":  "CHECK_INTERVAL_SECONDS",
	"monitor.long_query_threshold_ms": "LONG_RUNNING_QUERY_THRESHOLD_MS",
	"monitor.anomaly_z_threshold":     "ANOMALY_Z_SCORE_THRESHOLD",
	"redis.addr":                      "REDIS_ADDR",
}

// Load reads configuration from defaults, the optional YAML file at path and
// the environment, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg := unmarshalConfig(v)
	applyEnvOverrides(cfg)

	if err := joinErrors(cfg.Validate()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindLegacyEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		primary := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, primary, legacy); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	// Monitor
	v.SetDefault("monitor.window_size", d.Monitor.WindowSize)
	v.SetDefault("monitor.anomaly_z_threshold", d.Monitor.AnomalyZThreshold)
	v.SetDefault("monitor.check_interval_seconds", d.Monitor.CheckIntervalSeconds)
	v.SetDefault("monitor.long_query_threshold_ms", d.Monitor.LongQueryThresholdMs)
	v.SetDefault("monitor.cpu_critical_threshold", d.Monitor.CPUCriticalThreshold)

	// Database
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.ssl_mode", d.Database.SSLMode)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.connect_timeout_seconds", d.Database.ConnectTimeoutSeconds)

	// Alerting
	v.SetDefault("alerting.console", d.Alerting.Console)
	v.SetDefault("alerting.slack_webhook_url", d.Alerting.SlackWebhookURL)
	v.SetDefault("alerting.timeout_seconds", d.Alerting.TimeoutSeconds)
	v.SetDefault("alerting.twilio.account_sid", d.Alerting.Twilio.AccountSID)
	v.SetDefault("alerting.twilio.auth_token", d.Alerting.Twilio.AuthToken)
	v.SetDefault("alerting.twilio.from_phone", d.Alerting.Twilio.FromPhone)
	v.SetDefault("alerting.twilio.to_phone", d.Alerting.Twilio.ToPhone)

	// Redis
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.sample_ttl_seconds", d.Redis.SampleTTLSeconds)
	v.SetDefault("redis.max_recent", d.Redis.MaxRecent)

	// HTTP
	v.SetDefault("http.addr", d.HTTP.Addr)

	// Logging
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
}

func unmarshalConfig(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Monitor.WindowSize = v.GetInt("monitor.window_size")
	cfg.Monitor.AnomalyZThreshold = v.GetFloat64("monitor.anomaly_z_threshold")
	cfg.Monitor.CheckIntervalSeconds = v.GetFloat64("monitor.check_interval_seconds")
	cfg.Monitor.LongQueryThresholdMs = v.GetInt("monitor.long_query_threshold_ms")
	cfg.Monitor.CPUCriticalThreshold = v.GetFloat64("monitor.cpu_critical_threshold")

	cfg.Database.Driver = v.GetString("database.driver")
	cfg.Database.Host = v.GetString("database.host")
	cfg.Database.Port = v.GetInt("database.port")
	cfg.Database.Name = v.GetString("database.name")
	cfg.Database.User = v.GetString("database.user")
	cfg.Database.Password = v.GetString("database.password")
	cfg.Database.SSLMode = v.GetString("database.ssl_mode")
	cfg.Database.DSN = v.GetString("database.dsn")
	cfg.Database.ConnectTimeoutSeconds = v.GetInt("database.connect_timeout_seconds")

	cfg.Alerting.Console = v.GetBool("alerting.console")
	cfg.Alerting.SlackWebhookURL = v.GetString("alerting.slack_webhook_url")
	cfg.Alerting.TimeoutSeconds = v.GetInt("alerting.timeout_seconds")
	cfg.Alerting.Twilio.AccountSID = v.GetString("alerting.twilio.account_sid")
	cfg.Alerting.Twilio.AuthToken = v.GetString("alerting.twilio.auth_token")
	cfg.Alerting.Twilio.FromPhone = v.GetString("alerting.twilio.from_phone")
	cfg.Alerting.Twilio.ToPhone = v.GetString("alerting.twilio.to_phone")

	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Redis.SampleTTLSeconds = v.GetInt("redis.sample_ttl_seconds")
	cfg.Redis.MaxRecent = v.GetInt("redis.max_recent")

	cfg.HTTP.Addr = v.GetString("http.addr")

	cfg.Logging.Level = v.GetString("logging.level")
	cfg.Logging.Format = v.GetString("logging.format")
	cfg.Logging.File = v.GetString("logging.file")
	cfg.Logging.MaxSizeMB = v.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = v.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = v.GetInt("logging.max_age_days")
	cfg.Logging.Compress = v.GetBool("logging.compress")

	return cfg
}

// applyEnvOverrides handles environment names that do not map one-to-one
// onto a config key.
func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" && os.Getenv(EnvPrefix+"_HTTP_ADDR") == "" {
		cfg.HTTP.Addr = ":" + port
	}
}
