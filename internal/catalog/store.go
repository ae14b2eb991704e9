package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"bookshelf/internal/logging"
)

// CacheFileName is the catalog file written into the library directory.
const CacheFileName = "book_cache.json"

const filePerms = 0644

// LoadError reports a catalog file that existed but could not be used as
// is. Recovered is true when the file parsed but had to be sorted or
// deduplicated; Dropped counts the discarded duplicate entries. When
// Recovered is false the catalog was replaced by an empty one.
type LoadError struct {
	Path      string
	Err       error
	Recovered bool
	Dropped   int
}

func (e *LoadError) Error() string {
	if e.Recovered {
		return fmt.Sprintf("catalog %s was not in canonical order (%v); normalized, %d duplicate entries dropped", e.Path, e.Err, e.Dropped)
	}
	return fmt.Sprintf("failed to load catalog %s, starting from an empty catalog: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SaveError reports that the catalog could not be persisted.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to save catalog %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// Store reads and writes the catalog file of one library directory.
type Store struct {
	path string
}

// NewStore returns a Store for {dir}/book_cache.json.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, CacheFileName)}
}

// Path returns the catalog file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the catalog. A missing file yields an empty catalog and no
// error. An unreadable or malformed file yields an empty catalog and a
// *LoadError. A file that parses but is unsorted or has duplicate titles
// yields the normalized catalog and a *LoadError with Recovered set.
func (s *Store) Load() (Catalog, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Debug("Catalog %s does not exist yet", s.path)
		return Catalog{}, nil
	}
	if err != nil {
		return Catalog{}, &LoadError{Path: s.path, Err: err}
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return Catalog{}, &LoadError{Path: s.path, Err: err}
	}
	if c == nil {
		c = Catalog{}
	}

	if verr := Validate(c); verr != nil {
		normalized, dropped := Normalize(c)
		return normalized, &LoadError{Path: s.path, Err: verr, Recovered: true, Dropped: dropped}
	}

	logging.Debug("Loaded %d catalog entries from %s", len(c), s.path)
	return c, nil
}

// Save writes c as pretty-printed JSON, replacing any previous file
// atomically. The same catalog always produces the same bytes.
func (s *Store) Save(c Catalog) error {
	data, err := Encode(c)
	if err != nil {
		return &SaveError{Path: s.path, Err: err}
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return &SaveError{Path: s.path, Err: err}
	}

	// atomic.WriteFile creates new files with temp-file permissions
	if err := os.Chmod(s.path, filePerms); err != nil {
		return &SaveError{Path: s.path, Err: err}
	}

	logging.Debug("Saved %d catalog entries to %s", len(c), s.path)
	return nil
}

// Encode renders c in the persisted format: a two-space indented JSON
// array followed by a newline. A nil catalog encodes as [].
func Encode(c Catalog) ([]byte, error) {
	if c == nil {
		c = Catalog{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
