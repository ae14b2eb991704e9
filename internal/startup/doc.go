// Package startup handles configuration loading and startup/shutdown
// logging for the bookshelf commands.
//
// # Configuration
//
// [LoadConfig] layers configuration from, in increasing precedence:
//
//  1. built-in defaults ([Default]);
//  2. a TOML file: the explicit path, else $BOOKSHELF_CONFIG, else
//     ~/.config/bookshelf/config.toml when it exists;
//  3. environment variables.
//
// Command-line flags are applied on top by the caller. The supported
// environment variables are:
//
//   - BOOKSHELF_LIBRARY_DIR: directory holding the books (default: .)
//   - BOOKSHELF_WORKERS: ingestion workers, 0 = automatic (default: 0)
//   - BOOKSHELF_LISTEN: HTTP listen address for serve (default: 127.0.0.1:8080)
//   - BOOKSHELF_COVER_MAX_DIMENSION: longest cover side in pixels, 0 = unbounded (default: 1600)
//   - BOOKSHELF_COVER_QUALITY: JPEG quality of re-encoded covers (default: 85)
//   - BOOKSHELF_METRICS_FILE: write a Prometheus textfile after each run
//   - BOOKSHELF_LOG_LEVEL: debug, info, warn, error (default: info)
//   - BOOKSHELF_LOG_HEALTH_CHECKS: log /healthz requests (default: false)
//
// # Startup Logging
//
// The Log* helpers print the sectioned banner output used by the serve
// command, and [LogHTTPRoutes] lists the registered routes at debug level.
package startup
