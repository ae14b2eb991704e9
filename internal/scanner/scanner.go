package scanner

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"bookshelf/internal/booktypes"
	"bookshelf/internal/filesystem"
	"bookshelf/internal/logging"
)

// ScanError reports that the library directory could not be listed.
type ScanError struct {
	Dir string
	Err error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("failed to list library directory %s: %v", e.Dir, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Scanner lists supported book files in a single directory.
type Scanner struct {
	dir   string
	exts  map[string]bool
	retry filesystem.RetryConfig
}

// New creates a Scanner for dir. exts is a set of lowercase dotted
// extensions; nil selects booktypes.BookExtensions.
func New(dir string, exts map[string]bool) *Scanner {
	if exts == nil {
		exts = booktypes.BookExtensions
	}
	return &Scanner{
		dir:   dir,
		exts:  exts,
		retry: filesystem.DefaultRetryConfig(),
	}
}

// Candidates lists the directory and returns a sequence of candidate paths.
func (s *Scanner) Candidates() (iter.Seq[string], error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &ScanError{Dir: s.dir, Err: err}
	}

	logging.Debug("Scanner: %d entries in %s", len(entries), s.dir)

	return func(yield func(string) bool) {
		for _, entry := range entries {
			path, ok := s.candidate(entry)
			if !ok {
				continue
			}
			if !yield(path) {
				return
			}
		}
	}, nil
}

// candidate decides whether a directory entry is a book to ingest.
func (s *Scanner) candidate(entry os.DirEntry) (string, bool) {
	name := entry.Name()
	if strings.HasPrefix(name, ".") || entry.IsDir() {
		return "", false
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !s.exts[ext] {
		return "", false
	}

	path := filepath.Join(s.dir, name)
	if entry.Type().IsRegular() {
		return path, true
	}

	// Symlinks and other special entries: follow and require a regular file.
	info, err := filesystem.StatWithRetry(path, s.retry)
	if err != nil {
		logging.Warn("Scanner: skipping %s: %v", path, err)
		return "", false
	}
	if !info.Mode().IsRegular() {
		logging.Debug("Scanner: skipping non-regular file %s", path)
		return "", false
	}

	return path, true
}
