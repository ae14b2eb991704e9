package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bookshelf/internal/catalog"
	"bookshelf/internal/startup"
	"bookshelf/internal/testsupport"
)

// isolateEnv keeps the developer's config and BOOKSHELF_* variables out
// of the test.
func isolateEnv(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		startup.EnvConfigPath,
		"BOOKSHELF_LIBRARY_DIR",
		"BOOKSHELF_WORKERS",
		"BOOKSHELF_LISTEN",
		"BOOKSHELF_LOG_LEVEL",
		"BOOKSHELF_METRICS_FILE",
		"BOOKSHELF_COVER_MAX_DIMENSION",
		"BOOKSHELF_COVER_QUALITY",
		"BOOKSHELF_MEMORY_LIMIT",
	} {
		t.Setenv(key, "")
	}
	return home
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cover := testsupport.JPEG(t, 16, 24, color.RGBA{B: 160, A: 255})
	testsupport.WriteEPUB(t, dir, "neuromancer.epub", "Neuromancer", testsupport.WithCover(cover, "image/jpeg"))
	testsupport.WriteEPUB(t, dir, "hyperion.epub", "Hyperion")
	testsupport.WriteEPUB(t, dir, "solaris.epub", "Solaris")
	return dir
}

func TestBuildAndList(t *testing.T) {
	isolateEnv(t)
	dir := writeTestLibrary(t)

	stdout, _, err := runCLI(t, "build", dir)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.Contains(stdout, "Scanned 3, added 3, duplicates 0, skipped 0") {
		t.Errorf("Unexpected build output: %q", stdout)
	}

	stdout, _, err = runCLI(t, "list", dir)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 TSV lines, got %q", stdout)
	}
	var titles []string
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			t.Fatalf("Expected 3 fields in %q", line)
		}
		titles = append(titles, fields[0])
	}
	if got := strings.Join(titles, ","); got != "Hyperion,Neuromancer,Solaris" {
		t.Errorf("Unexpected order %s", got)
	}
	if !strings.Contains(lines[1], "/covers/") {
		t.Errorf("Expected Neuromancer to have a cover: %q", lines[1])
	}

	// Rerun adds nothing
	stdout, _, err = runCLI(t, "build", dir)
	if err != nil {
		t.Fatalf("second build failed: %v", err)
	}
	if !strings.Contains(stdout, "added 0") {
		t.Errorf("Expected nothing added, got %q", stdout)
	}
}

func TestBuildJSON(t *testing.T) {
	isolateEnv(t)
	dir := writeTestLibrary(t)
	if err := os.WriteFile(filepath.Join(dir, "broken.epub"), []byte("nope"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	stdout, _, err := runCLI(t, "build", "--json", "--workers", "2", dir)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	var report struct {
		Scanned  int      `json:"scanned"`
		Inserted int      `json:"inserted"`
		Skipped  int      `json:"skipped"`
		Errors   []string `json:"errors"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, stdout)
	}
	if report.Scanned != 4 || report.Inserted != 3 || report.Skipped != 1 || len(report.Errors) != 1 {
		t.Errorf("Unexpected report %+v", report)
	}
}

func TestBuildUsesConfigFile(t *testing.T) {
	home := isolateEnv(t)
	dir := writeTestLibrary(t)
	metricsFile := filepath.Join(t.TempDir(), "bookshelf.prom")

	configPath := filepath.Join(home, "custom.toml")
	content := "library_dir = \"" + filepath.ToSlash(dir) + "\"\n" +
		"metrics_file = \"" + filepath.ToSlash(metricsFile) + "\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, _, err := runCLI(t, "--config", configPath, "build"); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, catalog.CacheFileName)); err != nil {
		t.Errorf("Expected catalog in configured library: %v", err)
	}
	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("Expected metrics file: %v", err)
	}
	if !strings.Contains(string(data), "bookshelf_catalog_runs_total") {
		t.Error("Metrics file is missing catalog run counters")
	}
}

func TestCommandErrors(t *testing.T) {
	isolateEnv(t)
	missing := filepath.Join(t.TempDir(), "missing")

	badConfig := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(badConfig, []byte("unknown_key = 1\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"build missing dir", []string{"build", missing}, "failed to list library directory"},
		{"encode missing file", []string{"encode", missing}, "failed to open"},
		{"encode needs arg", []string{"encode"}, "accepts 1 arg"},
		{"bad config", []string{"--config", badConfig, "list"}, "unknown_key"},
		{"missing config", []string{"--config", missing, "list"}, "config file"},
		{"bad log level", []string{"--log-level", "loud", "list", t.TempDir()}, "log_level"},
		{"negative workers", []string{"--workers", "-3", "list", t.TempDir()}, "--workers"},
		{"too many args", []string{"list", "a", "b"}, "accepts at most 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestListWarnsOnCorruptCatalog(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, catalog.CacheFileName), []byte("[{"), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}

	stdout, stderr, err := runCLI(t, "list", "--json", dir)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if stdout != "[]\n" {
		t.Errorf("Expected empty catalog, got %q", stdout)
	}
	if !strings.HasPrefix(stderr, "warning:") {
		t.Errorf("Expected a warning, got %q", stderr)
	}
}

func TestEncode(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "cover.jpg")
	data := []byte{0xff, 0xd8, 0xff, 0x00, 0x10}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	stdout, _, err := runCLI(t, "encode", path)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if want := base64.StdEncoding.EncodeToString(data) + "\n"; stdout != want {
		t.Errorf("Expected %q, got %q", want, stdout)
	}
}

func TestWriteTSV(t *testing.T) {
	t.Parallel()

	c := catalog.Catalog{
		{Title: "Tab\tTitle", SourceLocation: "/lib/a.epub", CoverLocation: ""},
		{Title: "Zed", SourceLocation: "/lib/z.epub", CoverLocation: "/lib/covers/x.jpg"},
	}

	var buf bytes.Buffer
	if err := writeTSV(&buf, c); err != nil {
		t.Fatalf("writeTSV failed: %v", err)
	}
	want := "Tab Title\t/lib/a.epub\t\nZed\t/lib/z.epub\t/lib/covers/x.jpg\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}

func TestRenderCatalogTable(t *testing.T) {
	t.Parallel()

	out := renderCatalogTable(catalog.Catalog{
		{Title: "Dune", SourceLocation: "/lib/dune.epub", CoverLocation: "/lib/covers/1.jpg"},
		{Title: "Emma", SourceLocation: "/lib/emma.epub"},
	})

	// Headers are upper-cased by the rounded style.
	for _, want := range []string{"TITLE", "Dune", "Emma", "yes", "no", "╭"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected table to contain %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("Expected empty render without headers")
	}
}

func TestHTTPHandler(t *testing.T) {
	isolateEnv(t)
	dir := writeTestLibrary(t)
	cfg := startup.Default()
	cfg.LibraryDir = dir

	handler := newHTTPHandler(&cfg)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/catalog/rebuild", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from rebuild, got %d: %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/catalog", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from catalog, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	body := w.Body.String()
	if !strings.Contains(body, `route="/api/catalog/rebuild"`) {
		t.Error("Expected request metrics labeled by route template")
	}
}

func TestRunServerStopsOnCancel(t *testing.T) {
	isolateEnv(t)
	cfg := startup.Default()
	cfg.LibraryDir = t.TempDir()
	cfg.Listen = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := runServer(ctx, &cfg, &out); err != nil {
		t.Fatalf("runServer returned %v", err)
	}
	if !strings.Contains(out.String(), "/_.___/") {
		t.Error("Expected the banner on stdout")
	}
}

func TestRunServerListenError(t *testing.T) {
	isolateEnv(t)
	cfg := startup.Default()
	cfg.LibraryDir = t.TempDir()
	cfg.Listen = "256.0.0.1:bad"

	if err := runServer(context.Background(), &cfg, &bytes.Buffer{}); err == nil {
		t.Fatal("Expected a listen error")
	}
}
