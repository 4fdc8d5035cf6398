package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics for the status server
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_http_requests_total",
			Help: "Total number of HTTP requests to the status server",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "icon_sync_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// History database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_db_queries_total",
			Help: "Total number of history database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "icon_sync_db_query_duration_seconds",
			Help:    "History database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "icon_sync_db_size_bytes",
			Help: "Size of the history database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Maintenance metrics
var (
	MaintenancePassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_maintenance_passes_total",
			Help: "Total number of maintenance passes by trigger reason",
		},
		[]string{"reason"},
	)

	MaintenancePassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "icon_sync_maintenance_pass_duration_seconds",
			Help:    "Duration of maintenance passes in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	MaintenanceRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "icon_sync_maintenance_running",
			Help: "Whether a maintenance pass is currently running (1) or not (0)",
		},
	)

	MaintenancePassFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "icon_sync_maintenance_pass_failures_total",
			Help: "Maintenance passes that aborted with a recovered failure",
		},
	)

	MaintenanceRequestsCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "icon_sync_maintenance_requests_coalesced_total",
			Help: "Maintenance requests folded into the pending slot while a pass was running",
		},
	)

	MaintenanceLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "icon_sync_maintenance_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed maintenance pass",
		},
	)

	OrphansRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_orphan_icons_removed_total",
			Help: "Orphan icons deleted or quarantined",
		},
		[]string{"action"},
	)

	NormalizeMoves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "icon_sync_normalize_moves_total",
			Help: "Nested images moved to the library root",
		},
	)
)

// Library metrics
var (
	LibraryCollisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_library_collisions_total",
			Help: "Incoming files skipped because their canonical name already exists",
		},
		[]string{"op"},
	)

	LibraryWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_library_writes_total",
			Help: "Copies and moves into the library by outcome",
		},
		[]string{"op", "status"},
	)

	LibraryImages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "icon_sync_library_images",
			Help: "Source images at the library root",
		},
	)

	LibraryIcons = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "icon_sync_library_icons",
			Help: "Icon files in the icons folder",
		},
	)
)

// Encoder metrics
var (
	IconsEncodedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_icons_encoded_total",
			Help: "Icon encode results by status (converted/skipped/failed)",
		},
		[]string{"status"},
	)

	IconEncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "icon_sync_icon_encode_duration_seconds",
			Help:    "Time spent per encode phase in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"phase"}, // "decode", "resize", "write"
	)

	IconDecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_icon_decode_by_format_total",
			Help: "Source images decoded by format",
		},
		[]string{"format"},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_watcher_events_total",
			Help: "Filesystem events received by the watcher",
		},
		[]string{"op"},
	)

	WatcherTriggersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "icon_sync_watcher_triggers_total",
			Help: "Debounced maintenance requests fired by the watcher",
		},
	)

	WatcherErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "icon_sync_watcher_errors_total",
			Help: "Errors reported by the filesystem watcher",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "icon_sync_watched_directories",
			Help: "Directories currently registered with the watcher",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "icon_sync_filesystem_operation_duration_seconds",
			Help:    "Duration of copy, move and write operations by volume",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_filesystem_operation_errors_total",
			Help: "Failed filesystem operations by volume",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_filesystem_retry_attempts_total",
			Help: "Retries after stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icon_sync_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "icon_sync_filesystem_retry_duration_seconds",
			Help:    "Total duration of retried filesystem operations including backoff",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "icon_sync_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)

	Paused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "icon_sync_agent_paused",
			Help: "Whether the background agent is paused (1) or active (0)",
		},
	)
)

// Memory pressure metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "icon_sync_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryThrottled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "icon_sync_memory_throttled",
			Help: "Whether encoding is held back by memory pressure (1) or not (0)",
		},
	)

	MemoryThrottleEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "icon_sync_memory_throttle_events_total",
			Help: "Number of times encoding was held back by memory pressure",
		},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
