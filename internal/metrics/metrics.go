package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Monitor loop
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentineldb_ticks_total",
		Help: "Total number of monitor ticks by outcome",
	}, []string{"outcome"}) // ok, collection_failed, failed

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentineldb_tick_duration_seconds",
		Help:    "Time spent processing one monitor tick",
		Buckets: prometheus.DefBuckets,
	})

	// Collected indicators
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentineldb_active_connections",
		Help: "Active connections reported by the last sample",
	})

	CPULoad = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentineldb_cpu_load_percent",
		Help: "CPU load reported by the last sample",
	})

	LongRunningQueries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentineldb_long_running_queries",
		Help: "Long-running queries reported by the last sample",
	})

	// Detection and alerting
	ZScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentineldb_connections_z_score",
		Help: "Z-score of the last active-connection sample against its baseline",
	})

	AnomaliesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentineldb_anomalies_detected_total",
		Help: "Total number of anomalies detected",
	})

	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentineldb_alerts_total",
		Help: "Total number of alert decisions by kind",
	}, []string{"kind"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentineldb_notifications_total",
		Help: "Total number of notification deliveries by channel and status",
	}, []string{"channel", "status"})

	// HTTP status API
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})
)
