package handlers

import (
	"net/http"

	"bookshelf/internal/startup"
)

// VersionResponse is the build information plus the catalog this server
// maintains.
type VersionResponse struct {
	startup.BuildInfo
	LibraryDir  string `json:"libraryDir"`
	CatalogFile string `json:"catalogFile"`
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	response := VersionResponse{
		BuildInfo:  startup.GetBuildInfo(),
		LibraryDir: h.libraryDir,
	}
	if h.store != nil {
		response.CatalogFile = h.store.Path()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, response)
}
