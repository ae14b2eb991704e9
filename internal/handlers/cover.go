package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"bookshelf/internal/covers"
	"bookshelf/internal/logging"
)

var errOutsideLibrary = errors.New("path is outside the library")

// CoverResponse carries a cover image as standard base64.
type CoverResponse struct {
	Data string `json:"data"`
}

// GetCover returns the file named by the path query parameter as base64.
// Relative paths are resolved against the library directory; the resolved
// file must live inside it.
func (h *Handlers) GetCover(w http.ResponseWriter, r *http.Request) {
	requested := r.URL.Query().Get("path")
	if requested == "" {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}

	resolved, err := h.resolveInLibrary(requested)
	switch {
	case errors.Is(err, errOutsideLibrary):
		logging.Warn("Refused cover request outside library: %s", sanitizeHeader(requested))
		writeJSONError(w, "forbidden", http.StatusForbidden)
		return
	case errors.Is(err, os.ErrNotExist):
		writeJSONError(w, "not found", http.StatusNotFound)
		return
	case err != nil:
		logging.Error("Failed to resolve cover %s: %v", sanitizeHeader(requested), err)
		writeJSONError(w, "failed to resolve path", http.StatusInternalServerError)
		return
	}

	data, err := covers.EncodeFileBase64(resolved)
	if err != nil {
		logging.Error("Failed to encode cover %s: %v", resolved, err)
		writeJSONError(w, "failed to read cover", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=300")
	writeJSON(w, CoverResponse{Data: data})
}

// resolveInLibrary checks containment lexically first and again after
// following symlinks. It reports os.ErrNotExist for anything that is not
// a regular file.
func (h *Handlers) resolveInLibrary(requested string) (string, error) {
	root, err := filepath.Abs(h.libraryDir)
	if err != nil {
		return "", err
	}

	p := filepath.FromSlash(requested)
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)
	if !within(root, p) {
		return "", errOutsideLibrary
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", err
	}
	target, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", err
	}
	if !within(realRoot, target) {
		return "", errOutsideLibrary
	}

	info, err := os.Stat(target)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", os.ErrNotExist
	}
	return target, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
