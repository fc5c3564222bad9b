package collector

import (
	"fmt"
	"net/url"
	"strconv"

	"sentineldb/internal/config"
)

// Dialect holds the queries used to sample one database engine.
type Dialect struct {
	Name       string
	DriverName string

	ActiveConnectionsQuery string
	// CPUIdleQuery returns the idle CPU percentage. Empty when the engine
	// does not expose CPU usage.
	CPUIdleQuery string
	// LongRunningQuery takes the threshold in milliseconds as its only
	// argument.
	LongRunningQuery string
	VersionQuery     string
	// SleepQuery holds a connection busy for several seconds; used by the
	// stress command.
	SleepQuery string
}

var SQLServer = Dialect{
	Name:                   "sqlserver",
	DriverName:             "sqlserver",
	ActiveConnectionsQuery: `SELECT COUNT(*) FROM sys.dm_exec_connections`,
	CPUIdleQuery: `
		SELECT TOP(1)
			CAST(record.value('(./Record/SchedulerMonitorEvent/SystemHealth/SystemIdle)[1]', 'int') AS INT) AS SystemIdle
		FROM (
			SELECT timestamp, CONVERT(XML, record) AS record
			FROM sys.dm_os_ring_buffers
			WHERE ring_buffer_type = N'RING_BUFFER_SCHEDULER_MONITOR'
			AND record LIKE N'%<SystemHealth>%'
		) AS rb
		ORDER BY timestamp DESC`,
	LongRunningQuery: `
		SELECT session_id, status, command, total_elapsed_time, cpu_time
		FROM sys.dm_exec_requests
		WHERE total_elapsed_time > @p1
		AND session_id != @@SPID`,
	VersionQuery: `SELECT @@VERSION`,
	SleepQuery:   `WAITFOR DELAY '00:00:06'`,
}

var Postgres = Dialect{
	Name:                   "postgres",
	DriverName:             "postgres",
	ActiveConnectionsQuery: `SELECT COUNT(*) FROM pg_stat_activity WHERE backend_type = 'client backend'`,
	LongRunningQuery: `
		SELECT pid AS session_id,
			COALESCE(state, '') AS status,
			LEFT(COALESCE(query, ''), 200) AS command,
			(EXTRACT(EPOCH FROM (clock_timestamp() - query_start)) * 1000)::bigint AS total_elapsed_time,
			0::bigint AS cpu_time
		FROM pg_stat_activity
		WHERE state <> 'idle'
		AND query_start IS NOT NULL
		AND (EXTRACT(EPOCH FROM (clock_timestamp() - query_start)) * 1000) > $1
		AND pid <> pg_backend_pid()`,
	VersionQuery: `SELECT version()`,
	SleepQuery:   `SELECT pg_sleep(6)`,
}

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlserver":
		return SQLServer, nil
	case "postgres":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DSN builds the connection string for cfg, preferring an explicit DSN.
func DSN(cfg config.Database) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	timeout := strconv.Itoa(cfg.ConnectTimeoutSeconds)
	switch cfg.Driver {
	case "sqlserver":
		q := url.Values{}
		q.Set("database", cfg.Name)
		q.Set("connection timeout", timeout)
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     hostPort(cfg.Host, cfg.Port),
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	case "postgres":
		q := url.Values{}
		q.Set("sslmode", cfg.SSLMode)
		q.Set("connect_timeout", timeout)
		u := &url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     hostPort(cfg.Host, cfg.Port),
			Path:     "/" + cfg.Name,
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func hostPort(host string, port int) string {
	if port == 0 {
		return host
	}
	return host + ":" + strconv.Itoa(port)
}
