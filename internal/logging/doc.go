// Package logging provides the leveled logger used across bookshelf.
//
// Levels, lowest to highest:
//   - DEBUG: per-item detail (extraction, cover writes, lock waits)
//   - INFO: run lifecycle and summaries
//   - WARN: recoverable per-item failures and catalog load warnings
//   - ERROR: run-level failures
//
// The initial level comes from the DEBUG, BOOKSHELF_LOG_LEVEL or LOG_LEVEL
// environment variables. SetLevel overrides it, which is how the CLI
// --log-level flag and the config file take effect.
package logging
