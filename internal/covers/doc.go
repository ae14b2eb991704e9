// Package covers writes the per-book cover artifacts that catalog entries
// point at, and encodes artifacts for transport.
//
// Each book's cover is stored under {library}/covers/{id}.jpg where id is
// derived from the book's absolute path, so re-running over the same library
// rewrites the same file and distinct books never share a name. Oversized
// or non-JPEG covers are fitted and re-encoded; bytes that cannot be decoded
// are stored as they are.
package covers
