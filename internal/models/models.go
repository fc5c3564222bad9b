package models

import "time"

// LongRunningQuery describes one request that has been executing longer than
// the configured threshold.
type LongRunningQuery struct {
	SessionID int64  `json:"session_id" db:"session_id"`
	Status    string `json:"status" db:"status"`
	Command   string `json:"command" db:"command"`
	ElapsedMs int64  `json:"total_elapsed_time_ms" db:"total_elapsed_time"`
	CPUTimeMs int64  `json:"cpu_time_ms" db:"cpu_time"`
}

// Sample is one tick's set of health indicators.
type Sample struct {
	Timestamp          time.Time          `json:"timestamp"`
	ActiveConnections  float64            `json:"active_connections"`
	CPULoad            float64            `json:"cpu_load"`
	LongRunningQueries []LongRunningQuery `json:"long_running_queries"`
}

type AlertKind int

const (
	AlertNone AlertKind = iota
	AlertStatisticalAnomaly
	AlertCriticalResourceLoad
)

func (k AlertKind) String() string {
	switch k {
	case AlertStatisticalAnomaly:
		return "statistical_anomaly"
	case AlertCriticalResourceLoad:
		return "critical_resource_load"
	default:
		return "none"
	}
}

func (k AlertKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *AlertKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "statistical_anomaly":
		*k = AlertStatisticalAnomaly
	case "critical_resource_load":
		*k = AlertCriticalResourceLoad
	default:
		*k = AlertNone
	}
	return nil
}

type AlertDecision struct {
	ID        string    `json:"id"`
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Detection is the outcome of one z-score test against the current baseline.
// ZScore, Mean and StdDev are zero when the test was not applicable.
type Detection struct {
	Current      float64 `json:"current"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	ZScore       float64 `json:"z_score"`
	BaselineSize int     `json:"baseline_size"`
	Evaluated    bool    `json:"evaluated"`
	IsAnomaly    bool    `json:"is_anomaly"`
}

// DetectorStats is a read-only view of the detector for the status API.
type DetectorStats struct {
	WindowSize      int       `json:"window_size"`
	WindowFill      int       `json:"window_fill"`
	ZScoreThreshold float64   `json:"z_score_threshold"`
	Detection       Detection `json:"detection"`
}

// MonitorStatus summarises the scheduler's progress since startup.
type MonitorStatus struct {
	State              string     `json:"state"`
	Ticks              int64      `json:"ticks"`
	CollectionFailures int64      `json:"collection_failures"`
	TickFailures       int64      `json:"tick_failures"`
	Anomalies          int64      `json:"anomalies"`
	AlertsRaised       int64      `json:"alerts_raised"`
	AnomalyRate        float64    `json:"anomaly_rate"`
	LastTickAt         *time.Time `json:"last_tick_at,omitempty"`
	LastAnomalyTime    *time.Time `json:"last_anomaly_time,omitempty"`
	LastSample         *Sample    `json:"last_sample,omitempty"`
}
