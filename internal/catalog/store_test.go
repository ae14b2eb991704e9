package catalog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestStoreLoadMissing(t *testing.T) {
	t.Parallel()

	c, err := NewStore(t.TempDir()).Load()
	if err != nil {
		t.Fatalf("Expected no error for a missing catalog, got %v", err)
	}
	if c == nil || len(c) != 0 {
		t.Errorf("Expected an empty non-nil catalog, got %#v", c)
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	want := Catalog{
		{Title: "Alpha & Omega", SourceLocation: "/books/a.epub", CoverLocation: "/books/covers/a.jpg"},
		{Title: "Bravo", SourceLocation: "/books/b.epub", CoverLocation: ""},
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Entry %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestStoreSaveFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.Save(Catalog{{Title: "A&B", SourceLocation: "/x.epub", CoverLocation: "/covers/1.jpg"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, CacheFileName))
	if err != nil {
		t.Fatalf("Failed to read catalog: %v", err)
	}

	want := `[
  {
    "title": "A&B",
    "sourceLocation": "/x.epub",
    "coverLocation": "/covers/1.jpg"
  }
]
`
	if string(data) != want {
		t.Errorf("Unexpected catalog file:\n%s\nwant:\n%s", data, want)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(store.Path())
		if err != nil {
			t.Fatalf("Stat failed: %v", err)
		}
		if info.Mode().Perm() != filePerms {
			t.Errorf("Expected permissions %o, got %o", filePerms, info.Mode().Perm())
		}
	}
}

func TestStoreSaveEmptyCatalog(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	if err := store.Save(nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("Failed to read catalog: %v", err)
	}
	if string(data) != "[]\n" {
		t.Errorf("Expected [] for an empty catalog, got %q", data)
	}
}

func TestStoreSaveIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	c := catalogOf("Alpha", "Bravo", "Charlie")

	if err := store.Save(c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	first, _ := os.ReadFile(store.Path())

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := store.Save(loaded); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second, _ := os.ReadFile(store.Path())

	if !bytes.Equal(first, second) {
		t.Errorf("Expected byte-identical catalogs:\n%s\n---\n%s", first, second)
	}
}

func TestStoreLoadMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "truncated", content: `[{"title": "Alpha"`},
		{name: "not an array", content: `{"title": "Alpha"}`},
		{name: "garbage", content: "\x00\x01binary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := NewStore(dir)
			if err := os.WriteFile(store.Path(), []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write catalog: %v", err)
			}

			c, err := store.Load()
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Expected *LoadError, got %T: %v", err, err)
			}
			if loadErr.Recovered {
				t.Error("A malformed file must not be reported as recovered")
			}
			if len(c) != 0 {
				t.Errorf("Expected an empty fallback catalog, got %v", c)
			}
			if !strings.Contains(err.Error(), "starting from an empty catalog") {
				t.Errorf("Expected the data-loss warning in the message, got %q", err.Error())
			}
		})
	}
}

func TestStoreLoadNull(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	if err := os.WriteFile(store.Path(), []byte("null"), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}

	c, err := store.Load()
	if err != nil {
		t.Fatalf("Expected null to load as empty, got %v", err)
	}
	if c == nil || len(c) != 0 {
		t.Errorf("Expected an empty non-nil catalog, got %#v", c)
	}
}

func TestStoreLoadUnsorted(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	content := `[
  {"title": "Charlie", "sourceLocation": "/c.epub", "coverLocation": ""},
  {"title": "Alpha", "sourceLocation": "/a.epub", "coverLocation": ""},
  {"title": "Charlie", "sourceLocation": "/c2.epub", "coverLocation": ""}
]`
	if err := os.WriteFile(store.Path(), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}

	c, err := store.Load()
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected *LoadError, got %v", err)
	}
	if !loadErr.Recovered || loadErr.Dropped != 1 {
		t.Errorf("Expected recovered with 1 dropped, got %+v", loadErr)
	}
	if err := Validate(c); err != nil {
		t.Errorf("Expected a valid catalog after recovery: %v", err)
	}
	if len(c) != 2 || c[1].SourceLocation != "/c.epub" {
		t.Errorf("Unexpected recovered catalog: %+v", c)
	}
}

func TestStoreSaveError(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "does", "not", "exist"))
	err := store.Save(catalogOf("Alpha"))

	var saveErr *SaveError
	if !errors.As(err, &saveErr) {
		t.Fatalf("Expected *SaveError, got %T: %v", err, err)
	}
	if saveErr.Path != store.Path() {
		t.Errorf("Expected path %s, got %s", store.Path(), saveErr.Path)
	}
}

func TestStoreSaveReplacesExisting(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	if err := os.WriteFile(store.Path(), []byte(strings.Repeat("x", 4096)), 0644); err != nil {
		t.Fatalf("Failed to seed catalog: %v", err)
	}
	if err := store.Save(catalogOf("Alpha")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	c, err := store.Load()
	if err != nil {
		t.Fatalf("Load after overwrite failed: %v", err)
	}
	if len(c) != 1 || c[0].Title != "Alpha" {
		t.Errorf("Unexpected catalog after overwrite: %+v", c)
	}
}
