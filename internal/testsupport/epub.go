// Package testsupport builds on-disk fixtures shared by package tests.
package testsupport

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
)

// EPUBOption customizes a generated EPUB.
type EPUBOption func(*epubBuilder)

type epubBuilder struct {
	title         string
	cover         []byte
	coverHref     string
	coverMedia    string
	epub2Cover    bool
	opfPath       string
	skipContainer bool
	extra         map[string][]byte
}

// WithCover embeds image bytes as the EPUB 3 cover-image.
func WithCover(data []byte, mediaType string) EPUBOption {
	return func(b *epubBuilder) {
		b.cover = data
		b.coverMedia = mediaType
	}
}

// WithEPUB2Cover declares the cover through <meta name="cover"> instead of
// the cover-image property.
func WithEPUB2Cover() EPUBOption {
	return func(b *epubBuilder) {
		b.epub2Cover = true
	}
}

// WithCoverHref overrides the manifest href of the cover, relative to the OPF.
func WithCoverHref(href string) EPUBOption {
	return func(b *epubBuilder) {
		b.coverHref = href
	}
}

// WithOPFPath places the package document at the given archive path.
func WithOPFPath(p string) EPUBOption {
	return func(b *epubBuilder) {
		b.opfPath = p
	}
}

// WithoutContainer omits META-INF/container.xml.
func WithoutContainer() EPUBOption {
	return func(b *epubBuilder) {
		b.skipContainer = true
	}
}

// WithFile adds an arbitrary archive member.
func WithFile(name string, data []byte) EPUBOption {
	return func(b *epubBuilder) {
		b.extra[name] = data
	}
}

// EPUB returns the bytes of a minimal EPUB with the given title. An empty
// title produces a package without dc:title.
func EPUB(t testing.TB, title string, opts ...EPUBOption) []byte {
	t.Helper()

	b := &epubBuilder{
		title:     title,
		coverHref: "images/cover.jpg",
		opfPath:   "OEBPS/content.opf",
		extra:     map[string][]byte{},
	}
	for _, opt := range opts {
		opt(b)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name string, data []byte) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to add %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	add("mimetype", []byte("application/epub+zip"))

	if !b.skipContainer {
		add("META-INF/container.xml", []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="%s" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`, b.opfPath)))
	}

	add(b.opfPath, []byte(b.opf()))

	if b.cover != nil {
		add(resolve(b.opfPath, b.coverHref), b.cover)
	}
	for name, data := range b.extra {
		add(name, data)
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to finish EPUB: %v", err)
	}
	return buf.Bytes()
}

func (b *epubBuilder) opf() string {
	var meta, items strings.Builder

	if b.title != "" {
		fmt.Fprintf(&meta, "    <dc:title>%s</dc:title>\n", xmlEscape(b.title))
	}
	items.WriteString(`    <item id="chapter1" href="chapter1.xhtml" media-type="application/xhtml+xml"/>` + "\n")

	if b.cover != nil {
		if b.epub2Cover {
			meta.WriteString(`    <meta name="cover" content="img-front"/>` + "\n")
			fmt.Fprintf(&items, `    <item id="img-front" href="%s" media-type="%s"/>`+"\n", b.coverHref, b.coverMedia)
		} else {
			fmt.Fprintf(&items, `    <item id="img-front" href="%s" media-type="%s" properties="cover-image"/>`+"\n", b.coverHref, b.coverMedia)
		}
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="uid">urn:uuid:test</dc:identifier>
%s  </metadata>
  <manifest>
%s  </manifest>
  <spine>
    <itemref idref="chapter1"/>
  </spine>
</package>`, meta.String(), items.String())
}

// resolve maps an OPF-relative href to the archive member name.
func resolve(opfPath, href string) string {
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	return path.Join(path.Dir(opfPath), href)
}

func xmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// WriteEPUB writes an EPUB into dir and returns its path.
func WriteEPUB(t testing.TB, dir, name, title string, opts ...EPUBOption) string {
	t.Helper()

	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, EPUB(t, title, opts...), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", p, err)
	}
	return p
}

// JPEG returns an encoded w×h JPEG filled with c.
func JPEG(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h, c), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

// PNG returns an encoded w×h PNG filled with c.
func PNG(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h, c)); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
