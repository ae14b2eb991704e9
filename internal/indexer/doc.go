// Package indexer runs catalog ingestion for a library directory.
//
// A run loads the persisted catalog, lists candidate books, and fans them
// out to a bounded pool of workers. Each worker extracts metadata, skips
// titles already cataloged, writes the cover artifact and submits the new
// entry to the shared catalog.Index, which serializes locate-and-insert.
// After every worker has finished the catalog is persisted once.
//
// Failures of individual books are collected in the run Report and never
// stop the pool. Listing the directory, acquiring the run lock and saving
// the catalog are fatal to a run.
package indexer
