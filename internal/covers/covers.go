package covers

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"bookshelf/internal/filesystem"
	"bookshelf/internal/logging"
	"bookshelf/internal/metrics"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/natefinch/atomic"
	"golang.org/x/crypto/blake2b"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// DirName is the subdirectory of the library that holds covers.
	DirName = "covers"

	// DefaultMaxDimension is the largest width or height a stored cover keeps.
	DefaultMaxDimension = 1600

	// DefaultQuality is the JPEG quality used when a cover is re-encoded.
	DefaultQuality = 85

	idBytes   = 16
	filePerms = 0644
	dirPerms  = 0755
)

// ArtifactWriteError reports that a cover could not be stored.
type ArtifactWriteError struct {
	Source string
	Path   string
	Err    error
}

func (e *ArtifactWriteError) Error() string {
	return fmt.Sprintf("failed to write cover %s for %s: %v", e.Path, e.Source, e.Err)
}

func (e *ArtifactWriteError) Unwrap() error {
	return e.Err
}

// Options controls how covers are rendered.
type Options struct {
	// MaxDimension bounds width and height. Zero keeps the original size.
	MaxDimension int
	// Quality is the JPEG quality (1-100) for re-encoded covers.
	Quality int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxDimension: DefaultMaxDimension,
		Quality:      DefaultQuality,
	}
}

// Writer stores cover artifacts for one library directory. It is safe for
// concurrent use; distinct sources always map to distinct files.
type Writer struct {
	dir  string
	opts Options
}

// NewWriter creates a Writer that stores covers under {libraryDir}/covers.
func NewWriter(libraryDir string, opts Options) *Writer {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	if opts.MaxDimension < 0 {
		opts.MaxDimension = 0
	}
	return &Writer{
		dir:  filepath.Join(libraryDir, DirName),
		opts: opts,
	}
}

// Dir returns the directory covers are written to.
func (w *Writer) Dir() string {
	return w.dir
}

// ID returns the artifact identifier for a book: the hex BLAKE2b digest of
// its absolute, slash-separated source path and its title. A file that is
// retitled in place therefore gets a new artifact and never overwrites the
// cover an existing entry still points at.
func ID(sourcePath, title string) string {
	p := sourcePath
	if abs, err := filepath.Abs(sourcePath); err == nil {
		p = abs
	}
	h, err := blake2b.New(idBytes, nil)
	if err != nil {
		// Only reachable with an invalid size or key.
		panic(err)
	}
	h.Write([]byte(filepath.ToSlash(p)))
	h.Write([]byte{0})
	h.Write([]byte(title))
	return hex.EncodeToString(h.Sum(nil))
}

// PathFor returns where the cover of the book titled title at sourcePath
// is stored.
func (w *Writer) PathFor(sourcePath, title string) string {
	return filepath.Join(w.dir, ID(sourcePath, title)+".jpg")
}

// Write stores cover for the book titled title at sourcePath and returns the artifact
// location with forward slashes. An empty cover stores nothing and returns
// an empty location.
func (w *Writer) Write(sourcePath, title string, cover []byte) (string, error) {
	if len(cover) == 0 {
		metrics.CoverWritesTotal.WithLabelValues(metrics.CoverNone).Inc()
		return "", nil
	}

	out := w.PathFor(sourcePath, title)
	data, err := w.render(sourcePath, cover)
	if err == nil {
		err = writeFile(out, data)
	}
	if err != nil {
		metrics.CoverWritesTotal.WithLabelValues(metrics.CoverError).Inc()
		return "", &ArtifactWriteError{Source: sourcePath, Path: out, Err: err}
	}

	metrics.CoverWritesTotal.WithLabelValues(metrics.CoverWritten).Inc()
	metrics.CoverBytesWritten.Observe(float64(len(data)))
	logging.Debug("Cover written: %s (%d bytes)", out, len(data))

	return filepath.ToSlash(out), nil
}

// render returns the bytes to store. JPEGs within bounds are kept as is;
// other decodable images are fitted and re-encoded as JPEG.
func (w *Writer) render(sourcePath string, cover []byte) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(cover))
	if err != nil {
		logging.Debug("Cover of %s is not a decodable image, storing raw bytes: %v", sourcePath, err)
		return cover, nil
	}

	oversized := w.opts.MaxDimension > 0 &&
		(cfg.Width > w.opts.MaxDimension || cfg.Height > w.opts.MaxDimension)
	if format == "jpeg" && !oversized {
		return cover, nil
	}

	img, err := imaging.Decode(bytes.NewReader(cover), imaging.AutoOrientation(true))
	if err != nil {
		logging.Debug("Cover of %s failed to decode (%s), storing raw bytes: %v", sourcePath, format, err)
		return cover, nil
	}

	if oversized {
		logging.Debug("Fitting cover of %s from %dx%d to %d", sourcePath, cfg.Width, cfg.Height, w.opts.MaxDimension)
		img = imaging.Fit(img, w.opts.MaxDimension, w.opts.MaxDimension, imaging.Lanczos)
	}

	// JPEG has no alpha; flatten onto white so transparent covers stay legible.
	b := img.Bounds()
	flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.White), img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(w.opts.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode cover: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return fmt.Errorf("failed to create cover directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	return os.Chmod(path, filePerms)
}

// Remove deletes a cover artifact. A missing file is not an error.
func (w *Writer) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(filepath.FromSlash(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cover %s: %w", path, err)
	}
	metrics.CoverWritesTotal.WithLabelValues(metrics.CoverRemoved).Inc()
	return nil
}

// EncodeFileBase64 returns the standard base64 encoding of the file at path.
func EncodeFileBase64(path string) (string, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", path, err)
		}
	}()

	var buf bytes.Buffer
	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	if _, err := io.Copy(enc, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return buf.String(), nil
}
