package indexer

import (
	"context"
	"iter"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"bookshelf/internal/catalog"
	"bookshelf/internal/epub"
	"bookshelf/internal/logging"
	"bookshelf/internal/metrics"
	"bookshelf/internal/workers"

	"github.com/hashicorp/go-multierror"
)

// maxWorkers caps the automatically sized pool; extraction is bound by
// disk reads, so more workers rarely help.
const maxWorkers = 16

// Extractor reads the metadata of one book.
type Extractor interface {
	Extract(path string) (epub.Metadata, error)
}

// ArtifactWriter stores and discards per-book cover artifacts.
type ArtifactWriter interface {
	Write(sourcePath, title string, cover []byte) (string, error)
	Remove(path string) error
}

// State is the lifecycle stage of a run.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateExtracting
	StateMerged
	StatePersisted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateExtracting:
		return "extracting"
	case StateMerged:
		return "merged"
	case StatePersisted:
		return "persisted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CoordinatorConfig configures the worker pool.
type CoordinatorConfig struct {
	// NumWorkers is the number of parallel workers (0 = auto based on CPU)
	NumWorkers int
	// ChannelBuffer is the size of the job channel buffer
	ChannelBuffer int
}

// DefaultCoordinatorConfig returns defaults sized from available CPUs.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		NumWorkers:    workers.ForIO(maxWorkers),
		ChannelBuffer: 64,
	}
}

// Coordinator fans candidate paths out to workers that merge new entries
// into a shared catalog.Index. A Coordinator performs a single run.
type Coordinator struct {
	idx       *catalog.Index
	extractor Extractor
	covers    ArtifactWriter
	config    CoordinatorConfig

	state atomic.Int32
	jobs  chan string
	wg    sync.WaitGroup

	// Entries submitted during this run. Only these may be replaced by a
	// same-titled book with a lower source location.
	fresh sync.Map

	// Statistics
	scanned       atomic.Int64
	inserted      atomic.Int64
	duplicates    atomic.Int64
	skipped       atomic.Int64
	coverFailures atomic.Int64

	errMu sync.Mutex
	errs  *multierror.Error
}

// NewCoordinator creates a Coordinator merging into idx.
func NewCoordinator(idx *catalog.Index, ext Extractor, covers ArtifactWriter, config CoordinatorConfig) *Coordinator {
	if config.NumWorkers <= 0 {
		config.NumWorkers = workers.ForIO(maxWorkers)
	}
	if config.ChannelBuffer < 0 {
		config.ChannelBuffer = 0
	}

	return &Coordinator{
		idx:       idx,
		extractor: ext,
		covers:    covers,
		config:    config,
		jobs:      make(chan string, config.ChannelBuffer),
	}
}

// State returns the current lifecycle stage.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

func (c *Coordinator) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev != s {
		logging.Debug("Catalog run state: %s -> %s", prev, s)
	}
}

// Run processes every path yielded by paths and returns once all workers
// have finished. Cancelling ctx stops dispatch; items already handed to a
// worker still complete.
func (c *Coordinator) Run(ctx context.Context, paths iter.Seq[string]) *Report {
	startTime := time.Now()
	c.setState(StateExtracting)

	logging.Info("Starting catalog ingestion with %d workers", c.config.NumWorkers)
	metrics.IngestWorkers.Set(float64(c.config.NumWorkers))

	for i := 0; i < c.config.NumWorkers; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}

	c.dispatch(ctx, paths)

	// Close jobs channel to signal workers to stop
	close(c.jobs)
	c.wg.Wait()

	metrics.IngestWorkers.Set(0)
	c.setState(StateMerged)

	report := c.report()
	report.Duration = time.Since(startTime)

	logging.Info("Catalog ingestion complete: %d scanned, %d inserted, %d duplicates, %d skipped in %v",
		report.Scanned, report.Inserted, report.Duplicates, report.Skipped, report.Duration)

	return report
}

func (c *Coordinator) dispatch(ctx context.Context, paths iter.Seq[string]) {
	for path := range paths {
		if ctx.Err() != nil {
			logging.Warn("Catalog ingestion canceled: %v", ctx.Err())
			return
		}

		select {
		case c.jobs <- path:
			c.scanned.Add(1)
		case <-ctx.Done():
			logging.Warn("Catalog ingestion canceled: %v", ctx.Err())
			return
		}
	}
}

// worker processes paths from the jobs channel
func (c *Coordinator) worker(id int) {
	defer c.wg.Done()

	logging.Debug("Worker %d started", id)

	for path := range c.jobs {
		c.process(path)
	}

	logging.Debug("Worker %d finished", id)
}

// process ingests one book: extract, pre-check, write cover, submit.
func (c *Coordinator) process(path string) {
	meta, err := c.extractor.Extract(path)
	if err != nil {
		logging.Warn("Skipping %s: %v", path, err)
		c.skipped.Add(1)
		c.record(err)
		metrics.CatalogItemsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return
	}

	source := filepath.ToSlash(path)
	if existing, ok := c.idx.Lookup(meta.Title); ok && !c.supersedes(source, existing) {
		logging.Debug("Already cataloged: %q (%s)", meta.Title, path)
		c.duplicates.Add(1)
		metrics.CatalogItemsTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return
	}

	coverLocation, err := c.covers.Write(path, meta.Title, meta.Cover)
	if err != nil {
		logging.Warn("Cataloging %q without cover: %v", meta.Title, err)
		c.coverFailures.Add(1)
		c.record(err)
		coverLocation = ""
	}

	entry := catalog.Entry{
		Title:          meta.Title,
		SourceLocation: source,
		CoverLocation:  coverLocation,
	}

	// Mark before submitting so a same-titled worker that locks the index
	// right after this insert already sees the entry as replaceable.
	c.fresh.Store(entry, struct{}{})
	outcome, displaced, replaced := c.idx.SubmitOrReplace(entry, func(existing catalog.Entry) bool {
		return c.supersedes(source, existing)
	})
	switch {
	case replaced:
		// Same title found twice in this run; the lower source location wins
		// whatever order the workers finished in.
		logging.Debug("Replaced %s with %s for %q", displaced.SourceLocation, source, meta.Title)
		c.duplicates.Add(1)
		metrics.CatalogItemsTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		if displaced.CoverLocation != coverLocation {
			c.discardCover(meta.Title, displaced.CoverLocation)
		}
		return
	case outcome.Present:
		// Another worker cataloged the title between the pre-check and now.
		logging.Debug("Lost duplicate race for %q (%s)", meta.Title, path)
		c.duplicates.Add(1)
		metrics.CatalogItemsTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		c.discardCover(meta.Title, coverLocation)
		return
	}

	logging.Debug("Cataloged %q at %d", meta.Title, outcome.Position)
	c.inserted.Add(1)
	metrics.CatalogItemsTotal.WithLabelValues(metrics.OutcomeInserted).Inc()
}

// supersedes reports whether the book at source should take the place of
// existing: existing came from this run and sorts after source.
func (c *Coordinator) supersedes(source string, existing catalog.Entry) bool {
	if _, ok := c.fresh.Load(existing); !ok {
		return false
	}
	return source < existing.SourceLocation
}

// discardCover removes a cover written for an entry that was not inserted,
// unless the cataloged entry points at the same file.
func (c *Coordinator) discardCover(title, location string) {
	if location == "" {
		return
	}
	if existing, ok := c.idx.Lookup(title); ok && existing.CoverLocation == location {
		return
	}
	if err := c.covers.Remove(location); err != nil {
		logging.Warn("Failed to remove orphaned cover: %v", err)
	}
}

func (c *Coordinator) record(err error) {
	c.errMu.Lock()
	c.errs = multierror.Append(c.errs, err)
	c.errMu.Unlock()
}

func (c *Coordinator) report() *Report {
	c.errMu.Lock()
	defer c.errMu.Unlock()

	return &Report{
		Scanned:       c.scanned.Load(),
		Inserted:      c.inserted.Load(),
		Duplicates:    c.duplicates.Load(),
		Skipped:       c.skipped.Load(),
		CoverFailures: c.coverFailures.Load(),
		ItemErrors:    c.errs,
	}
}
