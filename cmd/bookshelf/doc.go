// Package main provides the bookshelf command.
//
// bookshelf keeps a sorted catalog of the e-books in a library directory.
// Each run scans the directory, extracts titles and covers from books the
// catalog does not know yet, and merges them into {library}/book_cache.json.
// Covers are stored as JPEGs under {library}/covers.
//
// # Commands
//
//   - build [dir]: build or update the catalog
//   - list [dir]: print the persisted catalog
//   - encode <file>: print a file as standard base64
//   - serve: run the HTTP API for the configured library
//
// # Configuration
//
// Settings are layered: built-in defaults, then the TOML config file
// (--config, BOOKSHELF_CONFIG or ~/.config/bookshelf/config.toml), then
// BOOKSHELF_* environment variables, then command-line flags.
//
// # Graceful Shutdown
//
// SIGINT and SIGTERM cancel the running command. A canceled build does not
// write the catalog. serve stops accepting requests and waits up to 30
// seconds for in-flight requests, including a running rebuild.
package main
