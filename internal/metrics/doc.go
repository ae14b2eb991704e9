// Package metrics provides Prometheus instrumentation for bookshelf.
//
// All metrics are prefixed with "bookshelf_" and registered on the default
// registry through promauto.
//
// # Metric Categories
//
// ## Catalog runs
//   - CatalogRunsTotal: runs by result (success, scan_error, save_error, locked, canceled)
//   - CatalogRunDuration: histogram of full build-or-update runs
//   - CatalogLastRunTimestamp: unix time of the last completed run
//   - CatalogEntries: entries in the catalog after the last run
//   - CatalogItemsTotal: items by outcome (inserted, duplicate, skipped)
//   - IngestWorkers: size of the worker pool of the current run
//
// ## Covers
//   - CoverWritesTotal: cover writes by status (written, none, error, removed)
//   - CoverBytesWritten: histogram of written cover sizes
//
// ## Filesystem
//   - FilesystemRetryAttempts, FilesystemRetrySuccess, FilesystemRetryFailures,
//     FilesystemStaleErrors: ESTALE retry behaviour by operation
//
// The HTTP host surface serves the registry at /metrics. One-shot CLI runs
// can export it with WriteTextfile for the node_exporter textfile collector.
package metrics
