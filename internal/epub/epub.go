package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"bookshelf/internal/filesystem"
	"bookshelf/internal/logging"

	"golang.org/x/text/encoding/htmlindex"
)

const (
	containerPath = "META-INF/container.xml"

	// DefaultMaxCoverBytes bounds how much of a cover image is read into memory.
	DefaultMaxCoverBytes = 32 << 20
)

var (
	// ErrNoTitle is returned when the package metadata has no usable title.
	ErrNoTitle = errors.New("package metadata has no title")
	// ErrNoPackage is returned when container.xml names no package document.
	ErrNoPackage = errors.New("container lists no package document")
)

// ExtractionError reports that a book could not be parsed.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract metadata from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Metadata is what the catalog needs from a book.
type Metadata struct {
	Title string
	// Cover holds the raw cover image bytes; nil when the book has none.
	Cover []byte
	// CoverMediaType is the manifest media type of the cover, if any.
	CoverMediaType string
}

// Extractor reads EPUB metadata. It is safe for concurrent use.
type Extractor struct {
	retry         filesystem.RetryConfig
	maxCoverBytes int64
}

// NewExtractor creates an Extractor with default limits.
func NewExtractor() *Extractor {
	return &Extractor{
		retry:         filesystem.DefaultRetryConfig(),
		maxCoverBytes: DefaultMaxCoverBytes,
	}
}

type container struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	Metadata struct {
		Titles []string `xml:"title"`
		Metas  []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Items []manifestItem `xml:"item"`
	} `xml:"manifest"`
}

type manifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// Extract returns the title and cover of the EPUB at path.
func (x *Extractor) Extract(path string) (Metadata, error) {
	meta, err := x.extract(path)
	if err != nil {
		return Metadata{}, &ExtractionError{Path: path, Err: err}
	}
	return meta, nil
}

func (x *Extractor) extract(filePath string) (Metadata, error) {
	f, err := filesystem.OpenWithRetry(filePath, x.retry)
	if err != nil {
		return Metadata{}, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", filePath, err)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return Metadata{}, err
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return Metadata{}, fmt.Errorf("not a zip archive: %w", err)
	}

	files := indexFiles(zr)

	var c container
	if err := decodeXML(files, containerPath, &c); err != nil {
		return Metadata{}, err
	}

	opfPath := ""
	for _, rf := range c.Rootfiles {
		if rf.FullPath != "" {
			opfPath = rf.FullPath
			break
		}
	}
	if opfPath == "" {
		return Metadata{}, ErrNoPackage
	}

	var pkg opfPackage
	if err := decodeXML(files, opfPath, &pkg); err != nil {
		return Metadata{}, err
	}

	title := firstTitle(pkg.Metadata.Titles)
	if title == "" {
		return Metadata{}, ErrNoTitle
	}

	meta := Metadata{Title: title}

	item, ok := findCover(&pkg)
	if !ok {
		logging.Debug("No cover declared in %s", filePath)
		return meta, nil
	}

	coverPath := resolveHref(opfPath, item.Href)
	data, err := x.readCover(files, coverPath)
	if err != nil {
		logging.Debug("Cover %s in %s unusable: %v", coverPath, filePath, err)
		return meta, nil
	}

	meta.Cover = data
	meta.CoverMediaType = item.MediaType
	return meta, nil
}

// indexFiles maps archive names to entries. Lookups fall back to a
// lowercase key because some producers disagree on case with their OPF.
func indexFiles(zr *zip.Reader) map[string]*zip.File {
	files := make(map[string]*zip.File, len(zr.File)*2)
	for _, zf := range zr.File {
		files[zf.Name] = zf
		lower := strings.ToLower(zf.Name)
		if _, exists := files[lower]; !exists {
			files[lower] = zf
		}
	}
	return files
}

func lookup(files map[string]*zip.File, name string) (*zip.File, bool) {
	if zf, ok := files[name]; ok {
		return zf, true
	}
	zf, ok := files[strings.ToLower(name)]
	return zf, ok
}

func decodeXML(files map[string]*zip.File, name string, v interface{}) error {
	zf, ok := lookup(files, name)
	if !ok {
		return fmt.Errorf("missing %s", name)
	}

	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	dec.Strict = false
	dec.CharsetReader = charsetReader
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// charsetReader decodes documents that declare a non-UTF-8 encoding.
// Unknown labels are read as is.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		logging.Debug("Unknown XML charset %q, reading as UTF-8", charset)
		return input, nil
	}
	return enc.NewDecoder().Reader(input), nil
}

func firstTitle(titles []string) string {
	for _, t := range titles {
		if t = strings.Join(strings.Fields(t), " "); t != "" {
			return t
		}
	}
	return ""
}

func findCover(pkg *opfPackage) (manifestItem, bool) {
	items := pkg.Manifest.Items

	for _, item := range items {
		for _, prop := range strings.Fields(item.Properties) {
			if prop == "cover-image" && item.Href != "" {
				return item, true
			}
		}
	}

	for _, m := range pkg.Metadata.Metas {
		if m.Name != "cover" || m.Content == "" {
			continue
		}
		for _, item := range items {
			if (item.ID == m.Content || item.Href == m.Content) && item.Href != "" {
				return item, true
			}
		}
	}

	for _, item := range items {
		if !strings.HasPrefix(item.MediaType, "image/") || item.Href == "" {
			continue
		}
		if strings.Contains(strings.ToLower(item.ID), "cover") ||
			strings.Contains(strings.ToLower(item.Href), "cover") {
			return item, true
		}
	}

	return manifestItem{}, false
}

// resolveHref turns a manifest href, relative to the OPF, into an archive name.
func resolveHref(opfPath, href string) string {
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	if i := strings.IndexAny(href, "#?"); i >= 0 {
		href = href[:i]
	}
	return strings.TrimPrefix(path.Join(path.Dir(opfPath), href), "/")
}

func (x *Extractor) readCover(files map[string]*zip.File, name string) ([]byte, error) {
	zf, ok := lookup(files, name)
	if !ok {
		return nil, fmt.Errorf("missing %s", name)
	}
	if zf.UncompressedSize64 > uint64(x.maxCoverBytes) {
		return nil, fmt.Errorf("cover is %d bytes, limit is %d", zf.UncompressedSize64, x.maxCoverBytes)
	}

	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, x.maxCoverBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > x.maxCoverBytes {
		return nil, fmt.Errorf("cover exceeds %d bytes", x.maxCoverBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("cover is empty")
	}
	return data, nil
}
