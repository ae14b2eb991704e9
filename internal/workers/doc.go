/*
Package workers sizes the ingestion worker pool.

Book ingestion is mostly I/O: each worker opens a zip archive, reads a few
small XML documents and the cover image, and writes one JPEG. Counts are
derived from runtime.GOMAXPROCS(0), which Go sets from the container CPU
limit, rather than runtime.NumCPU(), which reports host CPUs.

	n := workers.ForIO(16)         // 2 per CPU, at most 16
	n := workers.Resolve(cfg.Workers, 16) // explicit setting wins when > 0

The BOOKSHELF_WORKERS environment variable overrides the computed value.
The limit still applies to the override.
*/
package workers
