package config

func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Monitor.WindowSize = 60
	cfg.Monitor.AnomalyZThreshold = 2.0
	cfg.Monitor.CheckIntervalSeconds = 10
	cfg.Monitor.LongQueryThresholdMs = 5000
	cfg.Monitor.CPUCriticalThreshold = 90

	cfg.Database.Driver = "sqlserver"
	cfg.Database.Host = "localhost"
	cfg.Database.Name = "master"
	cfg.Database.User = "sa"
	cfg.Database.SSLMode = "disable"
	cfg.Database.ConnectTimeoutSeconds = 5

	cfg.Alerting.TimeoutSeconds = 10

	cfg.Redis.SampleTTLSeconds = 3600
	cfg.Redis.MaxRecent = 1000

	cfg.HTTP.Addr = ":8080"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"
	cfg.Logging.File = "monitor.log"
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxBackups = 5
	cfg.Logging.MaxAgeDays = 30

	return cfg
}
