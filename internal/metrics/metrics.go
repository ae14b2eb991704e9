package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookshelf_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookshelf_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Catalog run metrics
var (
	CatalogRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_catalog_runs_total",
			Help: "Total number of catalog build-or-update runs",
		},
		[]string{"result"},
	)

	CatalogRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookshelf_catalog_run_duration_seconds",
			Help:    "Duration of catalog build-or-update runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	CatalogLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookshelf_catalog_last_run_timestamp",
			Help: "Timestamp of the last completed catalog run",
		},
	)

	CatalogEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookshelf_catalog_entries",
			Help: "Number of entries in the catalog after the last run",
		},
	)

	CatalogItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_catalog_items_total",
			Help: "Total number of candidate items by ingestion outcome",
		},
		[]string{"outcome"},
	)

	IngestWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookshelf_ingest_workers",
			Help: "Number of workers in the current ingestion pool",
		},
	)
)

// Cover metrics
var (
	CoverWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_cover_writes_total",
			Help: "Total number of cover artifact operations by status",
		},
		[]string{"status"},
	)

	CoverBytesWritten = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookshelf_cover_bytes_written",
			Help:    "Size of written cover artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(4096, 2, 10),
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries after ESTALE",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors observed",
		},
		[]string{"operation"},
	)
)

// WriteTextfile writes the default registry in the text exposition format
// to path, for collection by the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
