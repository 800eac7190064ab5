package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	apiRequestsTotal   *prometheus.CounterVec
	apiLatencySeconds  *prometheus.HistogramVec
	apiErrorsTotal     *prometheus.CounterVec
	importRowsTotal    *prometheus.CounterVec
	snapshotOpsTotal   *prometheus.CounterVec
	snapshotDuration   *prometheus.HistogramVec
	autoBackupsTotal   *prometheus.CounterVec
	backupsRetained    prometheus.Gauge
	settingsCacheTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the vault.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vault_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		importRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_import_rows_total",
			Help: "Rows processed by bulk upserts, by entity and outcome.",
		}, []string{"entity", "outcome"})

		snapshotOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_snapshot_operations_total",
			Help: "Snapshot export, import, and clear operations by outcome.",
		}, []string{"operation", "outcome"})

		snapshotDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vault_snapshot_duration_seconds",
			Help:    "Duration of snapshot operations.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"operation"})

		autoBackupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_auto_backups_total",
			Help: "Automatic backups by outcome.",
		}, []string{"outcome"})

		backupsRetained = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_auto_backups_retained",
			Help: "Number of automatic backups currently retained.",
		})

		settingsCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_settings_cache_total",
			Help: "Settings reads by tier that served them.",
		}, []string{"tier"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			importRowsTotal,
			snapshotOpsTotal,
			snapshotDuration,
			autoBackupsTotal,
			backupsRetained,
			settingsCacheTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// ImportRows exposes the counter of processed import rows.
func ImportRows() *prometheus.CounterVec {
	RegisterMetrics()
	return importRowsTotal
}

// SnapshotOperations exposes the counter of snapshot operations.
func SnapshotOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return snapshotOpsTotal
}

// SnapshotDuration exposes the snapshot latency histogram.
func SnapshotDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return snapshotDuration
}

// AutoBackups exposes the counter of automatic backups.
func AutoBackups() *prometheus.CounterVec {
	RegisterMetrics()
	return autoBackupsTotal
}

// BackupsRetained exposes the gauge of retained automatic backups.
func BackupsRetained() prometheus.Gauge {
	RegisterMetrics()
	return backupsRetained
}

// SettingsCache exposes the counter of settings reads per tier.
func SettingsCache() *prometheus.CounterVec {
	RegisterMetrics()
	return settingsCacheTotal
}
