package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"bookshelf/internal/catalog"
	"bookshelf/internal/covers"
	"bookshelf/internal/epub"
	"bookshelf/internal/filesystem"
	"bookshelf/internal/logging"
	"bookshelf/internal/metrics"
	"bookshelf/internal/scanner"

	"github.com/gofrs/flock"
)

// LockFileName is the advisory lock held for the duration of a run.
const LockFileName = ".bookshelf.lock"

// ErrLocked is returned when another run holds the library's lock.
var ErrLocked = errors.New("catalog is locked by another run")

// Options configures BuildOrUpdateCatalog. The zero value is usable.
type Options struct {
	// Extensions is the supported extension set; nil means EPUB only.
	Extensions map[string]bool
	// Workers is the pool size (0 = auto based on CPU).
	Workers int
	// Covers controls cover rendering when Artifacts is nil.
	Covers covers.Options
	// Extractor overrides the default EPUB extractor.
	Extractor Extractor
	// Artifacts overrides the default cover writer.
	Artifacts ArtifactWriter
}

// DefaultOptions returns Options with default cover rendering.
func DefaultOptions() Options {
	return Options{Covers: covers.DefaultOptions()}
}

// BuildOrUpdateCatalog extends the catalog persisted in dir with the books
// that appeared since the last run and returns the resulting catalog.
//
// Fatal errors are *scanner.ScanError, *catalog.SaveError, ErrLocked and
// the context error when ctx is canceled; a canceled run is not persisted.
// Per-book failures and a recovered catalog load are reported in the Report.
func BuildOrUpdateCatalog(ctx context.Context, dir string, opts Options) (catalog.Catalog, *Report, error) {
	startTime := time.Now()

	// Source and cover locations are recorded absolute.
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	info, err := filesystem.StatWithRetry(dir, filesystem.DefaultRetryConfig())
	if err == nil && !info.IsDir() {
		err = errors.New("not a directory")
	}
	if err != nil {
		metrics.CatalogRunsTotal.WithLabelValues(metrics.ResultScanError).Inc()
		return nil, nil, &scanner.ScanError{Dir: dir, Err: err}
	}

	lock := flock.New(filepath.Join(dir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		metrics.CatalogRunsTotal.WithLabelValues(metrics.ResultLocked).Inc()
		return nil, nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		logging.Warn("Catalog run for %s skipped: another run holds %s", dir, lock.Path())
		metrics.CatalogRunsTotal.WithLabelValues(metrics.ResultLocked).Inc()
		return nil, nil, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.Warn("Failed to release run lock %s: %v", lock.Path(), err)
		}
	}()

	extractor := opts.Extractor
	if extractor == nil {
		extractor = epub.NewExtractor()
	}
	artifacts := opts.Artifacts
	if artifacts == nil {
		artifacts = covers.NewWriter(dir, opts.Covers)
	}

	store := catalog.NewStore(dir)
	existing, loadErr := store.Load()
	if loadErr != nil {
		logging.Warn("Continuing with recovered catalog: %v", loadErr)
	}

	idx := catalog.NewIndex(existing)
	coord := NewCoordinator(idx, extractor, artifacts, CoordinatorConfig{
		NumWorkers:    opts.Workers,
		ChannelBuffer: DefaultCoordinatorConfig().ChannelBuffer,
	})

	coord.setState(StateScanning)
	paths, err := scanner.New(dir, opts.Extensions).Candidates()
	if err != nil {
		coord.setState(StateFailed)
		metrics.CatalogRunsTotal.WithLabelValues(metrics.ResultScanError).Inc()
		return nil, &Report{LoadWarning: loadErr}, err
	}

	report := coord.Run(ctx, paths)
	report.LoadWarning = loadErr

	if err := ctx.Err(); err != nil {
		coord.setState(StateFailed)
		metrics.CatalogRunsTotal.WithLabelValues(metrics.ResultCanceled).Inc()
		report.Duration = time.Since(startTime)
		return nil, report, err
	}

	result := idx.Snapshot()
	if err := store.Save(result); err != nil {
		coord.setState(StateFailed)
		logging.Error("Failed to persist catalog: %v", err)
		metrics.CatalogRunsTotal.WithLabelValues(metrics.ResultSaveError).Inc()
		report.Duration = time.Since(startTime)
		return result, report, err
	}
	coord.setState(StatePersisted)

	report.Duration = time.Since(startTime)

	metrics.CatalogRunsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.CatalogRunDuration.Observe(report.Duration.Seconds())
	metrics.CatalogLastRunTimestamp.SetToCurrentTime()
	metrics.CatalogEntries.Set(float64(len(result)))

	logging.Info("Catalog %s updated: %d entries (%d new) in %v", store.Path(), len(result), report.Inserted, report.Duration)

	return result, report, nil
}
