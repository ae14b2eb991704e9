// Package memory configures the Go runtime's soft memory limit.
//
// Cover rendering decodes whole images, so a container running a large
// rebuild with many workers can exceed its memory limit without GOMEMLIMIT.
// [ConfigureFromEnv] derives the limit from the container limit:
//
//   - GOMEMLIMIT: standard Go variable, takes precedence when set.
//   - BOOKSHELF_MEMORY_LIMIT: container memory limit in bytes, typically
//     from the Kubernetes Downward API (resourceFieldRef limits.memory).
//   - BOOKSHELF_MEMORY_RATIO: share of the limit given to the Go heap,
//     between 0 and 1. Default 0.85.
package memory
