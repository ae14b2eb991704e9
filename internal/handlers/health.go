package handlers

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"bookshelf/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status     string     `json:"status"`
	Version    string     `json:"version"`
	Uptime     string     `json:"uptime"`
	LibraryDir string     `json:"libraryDir"`
	Rebuilding bool       `json:"rebuilding"`
	LastRun    *RunStatus `json:"lastRun,omitempty"`
	Error      string     `json:"error,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports healthy while the library directory is reachable.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		LibraryDir:   h.libraryDir,
		Rebuilding:   h.rebuilding.Load() > 0,
		LastRun:      h.LastRun(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	code := http.StatusOK
	if info, err := os.Stat(h.libraryDir); err != nil {
		response.Status = statusDegraded
		response.Error = err.Error()
		code = http.StatusServiceUnavailable
	} else if !info.IsDir() {
		response.Status = statusDegraded
		response.Error = "library path is not a directory"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		writeJSON(w, response)
	}
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSONStatus(w, "alive")
	}
}
