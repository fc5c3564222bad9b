// Package config loads the monitor configuration once at startup.
//
// Sources, highest priority first:
//  1. Environment variables (SENTINEL_* prefix, plus the legacy DB_SERVER,
//     SLACK_WEBHOOK_URL, TWILIO_*, CHECK_INTERVAL_SECONDS ... names)
//  2. YAML config file (optional)
//  3. Built-in defaults
//
// The resulting *Config is passed explicitly to every component; nothing
// reads configuration from package state.
package config

import "time"

type Config struct {
	Monitor  Monitor
	Database Database
	Alerting Alerting
	Redis    Redis
	HTTP     HTTP
	Logging  Logging
}

type Monitor struct {
	WindowSize           int
	AnomalyZThreshold    float64
	CheckIntervalSeconds float64
	LongQueryThresholdMs int
	CPUCriticalThreshold float64
}

func (m Monitor) CheckInterval() time.Duration {
	return time.Duration(m.CheckIntervalSeconds * float64(time.Second))
}

type Database struct {
	Driver                string // "sqlserver" | "postgres"
	Host                  string
	Port                  int // 0 uses the driver default
	Name                  string
	User                  string
	Password              string
	SSLMode               string // postgres only
	DSN                   string // overrides the fields above when set
	ConnectTimeoutSeconds int
}

func (d Database) ConnectTimeout() time.Duration {
	return time.Duration(d.ConnectTimeoutSeconds) * time.Second
}

type Alerting struct {
	// Console forces the console channel on even when remote channels exist.
	Console         bool
	SlackWebhookURL string
	TimeoutSeconds  int
	Twilio          Twilio
}

type Twilio struct {
	AccountSID string
	AuthToken  string
	FromPhone  string
	ToPhone    string
}

func (t Twilio) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != ""
}

// Redis configures the optional sample/alert journal. An empty Addr
// disables it.
type Redis struct {
	Addr             string
	Password         string
	DB               int
	SampleTTLSeconds int
	MaxRecent        int
}

func (r Redis) Enabled() bool { return r.Addr != "" }

// HTTP configures the status API. An empty Addr disables it.
type HTTP struct {
	Addr string
}

type Logging struct {
	Level      string
	Format     string // "console" | "json"
	File       string // empty disables the file sink
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}
