package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router returns the route table. Middleware is applied by the caller.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)

	// API routes hang off the root router so a method mismatch on a known
	// path answers 405 rather than falling through a prefix subrouter.
	r.HandleFunc("/api/version", h.GetVersion).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog", h.GetCatalog).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog/rebuild", h.RebuildCatalog).Methods(http.MethodPost)
	r.HandleFunc("/api/cover", h.GetCover).Methods(http.MethodGet)

	return r
}
