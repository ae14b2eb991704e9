package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"bookshelf/internal/catalog"
	"bookshelf/internal/epub"
	"bookshelf/internal/scanner"
	"bookshelf/internal/testsupport"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"
)

func writeLibrary(t *testing.T, dir string) {
	t.Helper()

	cover := testsupport.JPEG(t, 20, 30, color.RGBA{R: 90, G: 40, B: 10, A: 255})

	testsupport.WriteEPUB(t, dir, "dune.epub", "Dune", testsupport.WithCover(cover, "image/jpeg"))
	testsupport.WriteEPUB(t, dir, "emma.epub", "Emma")
	testsupport.WriteEPUB(t, dir, "ubik.EPUB", "Ubik", testsupport.WithCover(cover, "image/jpeg"), testsupport.WithEPUB2Cover())
	testsupport.WriteEPUB(t, dir, "alpha.epub", "alpha")

	// Not candidates
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	testsupport.WriteEPUB(t, dir, ".hidden.epub", "Hidden")
}

func TestBuildOrUpdateCatalog(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir)

	result, report, err := BuildOrUpdateCatalog(context.Background(), dir, DefaultOptions())
	if err != nil {
		t.Fatalf("BuildOrUpdateCatalog failed: %v", err)
	}

	if want := []string{"Dune", "Emma", "Ubik", "alpha"}; !slices.Equal(result.Titles(), want) {
		t.Errorf("Expected %v, got %v", want, result.Titles())
	}
	if report.Scanned != 4 || report.Inserted != 4 {
		t.Errorf("Unexpected report: %+v", report)
	}
	if report.LoadWarning != nil {
		t.Errorf("Unexpected load warning: %v", report.LoadWarning)
	}

	for _, e := range result {
		if strings.Contains(e.SourceLocation, `\`) {
			t.Errorf("Expected forward slashes in %s", e.SourceLocation)
		}
		hasCover := e.Title == "Dune" || e.Title == "Ubik"
		if hasCover != (e.CoverLocation != "") {
			t.Errorf("%s: unexpected cover location %q", e.Title, e.CoverLocation)
		}
		if hasCover {
			if _, err := os.Stat(filepath.FromSlash(e.CoverLocation)); err != nil {
				t.Errorf("%s: cover missing: %v", e.Title, err)
			}
		}
	}

	loaded, err := catalog.NewStore(dir).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !slices.Equal(loaded, result) {
		t.Errorf("Persisted catalog differs from result:\n%v\n%v", loaded, result)
	}
}

func TestBuildOrUpdateCatalogIncremental(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir)

	if _, _, err := BuildOrUpdateCatalog(context.Background(), dir, DefaultOptions()); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(dir, catalog.CacheFileName))
	if err != nil {
		t.Fatalf("Failed to read catalog: %v", err)
	}

	_, report, err := BuildOrUpdateCatalog(context.Background(), dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if report.Inserted != 0 || report.Duplicates != 4 {
		t.Errorf("Expected a no-op rerun, got %+v", report)
	}

	second, err := os.ReadFile(filepath.Join(dir, catalog.CacheFileName))
	if err != nil {
		t.Fatalf("Failed to read catalog: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("Rerun changed the catalog:\n%s\n---\n%s", first, second)
	}

	// A new book lands between existing ones.
	testsupport.WriteEPUB(t, dir, "foundation.epub", "Foundation")

	result, report, err := BuildOrUpdateCatalog(context.Background(), dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Third run failed: %v", err)
	}
	if report.Inserted != 1 {
		t.Errorf("Expected 1 insert, got %d", report.Inserted)
	}
	if want := []string{"Dune", "Emma", "Foundation", "Ubik", "alpha"}; !slices.Equal(result.Titles(), want) {
		t.Errorf("Expected %v, got %v", want, result.Titles())
	}
}

func TestBuildOrUpdateCatalogRetitledBookKeepsCover(t *testing.T) {
	dir := t.TempDir()
	red := testsupport.JPEG(t, 20, 30, color.RGBA{R: 200, A: 255})
	blue := testsupport.JPEG(t, 20, 30, color.RGBA{B: 200, A: 255})

	testsupport.WriteEPUB(t, dir, "book.epub", "Old Title", testsupport.WithCover(red, "image/jpeg"))
	if _, _, err := BuildOrUpdateCatalog(context.Background(), dir, DefaultOptions()); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	testsupport.WriteEPUB(t, dir, "book.epub", "New Title", testsupport.WithCover(blue, "image/jpeg"))
	result, _, err := BuildOrUpdateCatalog(context.Background(), dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if want := []string{"New Title", "Old Title"}; !slices.Equal(result.Titles(), want) {
		t.Fatalf("Expected %v, got %v", want, result.Titles())
	}
	newEntry, oldEntry := result[0], result[1]
	if oldEntry.CoverLocation == "" || oldEntry.CoverLocation == newEntry.CoverLocation {
		t.Fatalf("Expected distinct cover locations, got %q and %q", oldEntry.CoverLocation, newEntry.CoverLocation)
	}

	got, err := os.ReadFile(filepath.FromSlash(oldEntry.CoverLocation))
	if err != nil {
		t.Fatalf("Old cover missing: %v", err)
	}
	if !bytes.Equal(got, red) {
		t.Error("Old entry's cover was overwritten by the retitled book's cover")
	}
}

func TestBuildOrUpdateCatalogRelativeDirectory(t *testing.T) {
	dir := t.TempDir()
	cover := testsupport.JPEG(t, 20, 30, color.RGBA{G: 200, A: 255})
	testsupport.WriteEPUB(t, dir, "dune.epub", "Dune", testsupport.WithCover(cover, "image/jpeg"))

	t.Chdir(filepath.Dir(dir))
	result, _, err := BuildOrUpdateCatalog(context.Background(), filepath.Base(dir), DefaultOptions())
	if err != nil {
		t.Fatalf("BuildOrUpdateCatalog failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 entry, got %v", result)
	}
	for _, loc := range []string{result[0].SourceLocation, result[0].CoverLocation} {
		if !filepath.IsAbs(filepath.FromSlash(loc)) {
			t.Errorf("Expected an absolute location, got %s", loc)
		}
	}
}

func TestBuildOrUpdateCatalogEmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	result, report, err := BuildOrUpdateCatalog(context.Background(), dir, DefaultOptions())
	if err != nil {
		t.Fatalf("BuildOrUpdateCatalog failed: %v", err)
	}
	if len(result) != 0 || report.Scanned != 0 {
		t.Errorf("Expected empty catalog, got %v (%+v)", result, report)
	}

	data, err := os.ReadFile(filepath.Join(dir, catalog.CacheFileName))
	if err != nil {
		t.Fatalf("Expected catalog file: %v", err)
	}
	if string(data) != "[]\n" {
		t.Errorf("Expected empty array, got %q", data)
	}
}

func TestBuildOrUpdateCatalogSkipsBrokenBooks(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteEPUB(t, dir, "good.epub", "Good")
	testsupport.WriteEPUB(t, dir, "untitled.epub", "")
	if err := os.WriteFile(filepath.Join(dir, "garbage.epub"), []byte("not a zip"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	result, report, err := BuildOrUpdateCatalog(context.Background(), dir, DefaultOptions())
	if err != nil {
		t.Fatalf("BuildOrUpdateCatalog failed: %v", err)
	}
	if !slices.Equal(result.Titles(), []string{"Good"}) {
		t.Errorf("Expected only Good, got %v", result.Titles())
	}
	if report.Skipped != 2 {
		t.Errorf("Expected 2 skipped, got %d", report.Skipped)
	}

	var extractErr *epub.ExtractionError
	for _, err := range report.Errors() {
		if !errors.As(err, &extractErr) {
			t.Errorf("Expected *epub.ExtractionError, got %T", err)
		}
	}
}

func TestBuildOrUpdateCatalogRecoversCorruptCatalog(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteEPUB(t, dir, "good.epub", "Good")
	if err := os.WriteFile(filepath.Join(dir, catalog.CacheFileName), []byte("{broken"), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}

	result, report, err := BuildOrUpdateCatalog(context.Background(), dir, DefaultOptions())
	if err != nil {
		t.Fatalf("BuildOrUpdateCatalog failed: %v", err)
	}

	var loadErr *catalog.LoadError
	if !errors.As(report.LoadWarning, &loadErr) {
		t.Fatalf("Expected *catalog.LoadError warning, got %v", report.LoadWarning)
	}
	if !slices.Equal(result.Titles(), []string{"Good"}) {
		t.Errorf("Expected rebuilt catalog, got %v", result.Titles())
	}
}

func TestBuildOrUpdateCatalogScanError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	for _, target := range []string{filepath.Join(dir, "missing"), file} {
		_, _, err := BuildOrUpdateCatalog(context.Background(), target, DefaultOptions())

		var scanErr *scanner.ScanError
		if !errors.As(err, &scanErr) {
			t.Errorf("%s: expected *scanner.ScanError, got %T: %v", target, err, err)
		}
	}
}

func TestBuildOrUpdateCatalogLocked(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteEPUB(t, dir, "good.epub", "Good")

	held := flock.New(filepath.Join(dir, LockFileName))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("Failed to take lock: %v", err)
	}
	defer held.Unlock()

	_, _, err = BuildOrUpdateCatalog(context.Background(), dir, DefaultOptions())
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("Expected ErrLocked, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, catalog.CacheFileName)); !os.IsNotExist(err) {
		t.Errorf("Locked run must not write the catalog, stat err: %v", err)
	}

	if err := held.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if _, _, err := BuildOrUpdateCatalog(context.Background(), dir, DefaultOptions()); err != nil {
		t.Errorf("Expected run to succeed once the lock is released: %v", err)
	}
}

func TestBuildOrUpdateCatalogCanceled(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, _, err := BuildOrUpdateCatalog(ctx, dir, DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected no catalog from a canceled run, got %v", result)
	}
	if _, err := os.Stat(filepath.Join(dir, catalog.CacheFileName)); !os.IsNotExist(err) {
		t.Errorf("Canceled run must not persist, stat err: %v", err)
	}
}

func TestBuildOrUpdateCatalogSaveError(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteEPUB(t, dir, "good.epub", "Good")
	// A directory where the catalog file belongs makes the final rename fail.
	if err := os.Mkdir(filepath.Join(dir, catalog.CacheFileName), 0755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	_, _, err := BuildOrUpdateCatalog(context.Background(), dir, DefaultOptions())

	var saveErr *catalog.SaveError
	if !errors.As(err, &saveErr) {
		t.Fatalf("Expected *catalog.SaveError, got %T: %v", err, err)
	}
}

func TestBuildOrUpdateCatalogCustomExtensions(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteEPUB(t, dir, "a.epub", "From EPUB")
	testsupport.WriteEPUB(t, dir, "b.kepub", "From KEPUB")

	opts := DefaultOptions()
	opts.Extensions = map[string]bool{".kepub": true}
	opts.Workers = 1

	result, _, err := BuildOrUpdateCatalog(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("BuildOrUpdateCatalog failed: %v", err)
	}
	if !slices.Equal(result.Titles(), []string{"From KEPUB"}) {
		t.Errorf("Expected only the kepub, got %v", result.Titles())
	}
}

func TestReportMarshalJSON(t *testing.T) {
	t.Parallel()

	r := &Report{
		Scanned:     3,
		Inserted:    1,
		Skipped:     1,
		ItemErrors:  multierror.Append(nil, errors.New("first")),
		LoadWarning: &catalog.LoadError{Path: "x", Err: errors.New("bad")},
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got["scanned"] != float64(3) || got["inserted"] != float64(1) {
		t.Errorf("Unexpected counters: %s", data)
	}
	if got["loadWarning"] == nil {
		t.Errorf("Expected loadWarning, got %s", data)
	}
	if errs, ok := got["errors"].([]interface{}); !ok || len(errs) != 1 || errs[0] != "first" {
		t.Errorf("Expected errors [first], got %s", data)
	}
}
