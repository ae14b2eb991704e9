package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bookshelf/internal/catalog"
	"bookshelf/internal/indexer"
	"bookshelf/internal/logging"
	"bookshelf/internal/scanner"
)

// CatalogWarningHeader carries a recovered catalog load problem.
const CatalogWarningHeader = "X-Catalog-Warning"

// RebuildResponse is returned by RebuildCatalog.
type RebuildResponse struct {
	Catalog catalog.Catalog `json:"catalog"`
	Report  *indexer.Report `json:"report"`
}

// GetCatalog returns the persisted catalog in its on-disk format.
func (h *Handlers) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	c, err := h.store.Load()
	if err != nil {
		var loadErr *catalog.LoadError
		if !errors.As(err, &loadErr) {
			logging.Error("Failed to load catalog: %v", err)
			writeJSONError(w, "failed to load catalog", http.StatusInternalServerError)
			return
		}
		logging.Warn("Serving catalog with load warning: %v", loadErr)
		w.Header().Set(CatalogWarningHeader, sanitizeHeader(loadErr.Error()))
	}

	data, err := catalog.Encode(c)
	if err != nil {
		logging.Error("Failed to encode catalog: %v", err)
		writeJSONError(w, "failed to encode catalog", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write catalog response: %v", err)
	}
}

// RebuildCatalog runs BuildOrUpdateCatalog for the configured library.
// The run is detached from the request so a disconnecting client does not
// discard a nearly finished build.
func (h *Handlers) RebuildCatalog(w http.ResponseWriter, r *http.Request) {
	h.rebuilding.Add(1)
	defer h.rebuilding.Add(-1)

	ctx := context.WithoutCancel(r.Context())
	result, report, err := indexer.BuildOrUpdateCatalog(ctx, h.libraryDir, h.opts)

	status := &RunStatus{FinishedAt: time.Now(), Entries: len(result), Report: report}
	if err != nil {
		status.Error = err.Error()
	}
	if !errors.Is(err, indexer.ErrLocked) {
		h.setLastRun(status)
	}

	var scanErr *scanner.ScanError
	var saveErr *catalog.SaveError
	switch {
	case errors.Is(err, indexer.ErrLocked):
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	case errors.As(err, &scanErr):
		logging.Error("Rebuild failed: %v", err)
		writeJSONError(w, "library directory is not readable", http.StatusInternalServerError)
		return
	case errors.As(err, &saveErr):
		logging.Error("Rebuild failed: %v", err)
		writeJSONError(w, "failed to persist catalog", http.StatusInternalServerError)
		return
	case err != nil:
		logging.Error("Rebuild failed: %v", err)
		writeJSONError(w, "rebuild failed", http.StatusInternalServerError)
		return
	}

	if result == nil {
		result = catalog.Catalog{}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, RebuildResponse{Catalog: result, Report: report})
}
