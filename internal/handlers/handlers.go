package handlers

import (
	"sync"
	"sync/atomic"
	"time"

	"bookshelf/internal/catalog"
	"bookshelf/internal/indexer"
)

// RunStatus describes the most recent rebuild served by this process.
type RunStatus struct {
	FinishedAt time.Time       `json:"finishedAt"`
	Entries    int             `json:"entries"`
	Report     *indexer.Report `json:"report,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type Handlers struct {
	libraryDir string
	opts       indexer.Options
	store      *catalog.Store
	startTime  time.Time

	// In-flight rebuild requests, including ones that lose the run lock.
	rebuilding atomic.Int32

	mu      sync.Mutex
	lastRun *RunStatus
}

// New returns Handlers serving the library at libraryDir. opts is passed
// to every rebuild.
func New(libraryDir string, opts indexer.Options) *Handlers {
	return &Handlers{
		libraryDir: libraryDir,
		opts:       opts,
		store:      catalog.NewStore(libraryDir),
		startTime:  time.Now(),
	}
}

func (h *Handlers) setLastRun(status *RunStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRun = status
}

// LastRun returns a copy of the most recent rebuild status, or nil.
func (h *Handlers) LastRun() *RunStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastRun == nil {
		return nil
	}
	status := *h.lastRun
	return &status
}
