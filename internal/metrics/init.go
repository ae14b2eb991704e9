package metrics

// Run results recorded in CatalogRunsTotal.
const (
	ResultSuccess   = "success"
	ResultScanError = "scan_error"
	ResultSaveError = "save_error"
	ResultLocked    = "locked"
	ResultCanceled  = "canceled"
)

// Item outcomes recorded in CatalogItemsTotal.
const (
	OutcomeInserted  = "inserted"
	OutcomeDuplicate = "duplicate"
	OutcomeSkipped   = "skipped"
)

// Cover statuses recorded in CoverWritesTotal.
const (
	CoverWritten = "written"
	CoverNone    = "none"
	CoverError   = "error"
	CoverRemoved = "removed"
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first scrape or textfile write.
func InitializeMetrics() {
	for _, r := range []string{ResultSuccess, ResultScanError, ResultSaveError, ResultLocked, ResultCanceled} {
		CatalogRunsTotal.WithLabelValues(r)
	}

	for _, o := range []string{OutcomeInserted, OutcomeDuplicate, OutcomeSkipped} {
		CatalogItemsTotal.WithLabelValues(o)
	}

	for _, s := range []string{CoverWritten, CoverNone, CoverError, CoverRemoved} {
		CoverWritesTotal.WithLabelValues(s)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
