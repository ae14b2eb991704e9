// Package catalog maintains the sorted, duplicate-free list of cataloged
// books and persists it as book_cache.json.
//
// A Catalog is strictly increasing by Title under byte-wise string order
// (case-sensitive, no locale folding). Locate decides whether a title is
// already present or where it must be inserted; Insert applies the answer.
// Index wraps a Catalog behind a read/write mutex so that concurrent
// workers can submit entries: Submit performs locate and insert under one
// write lock, so two workers racing on the same title resolve to exactly
// one insertion.
//
// Store loads the catalog at the start of a run and writes it back at the
// end. A malformed or out-of-order file is never silently discarded: Load
// returns a *LoadError alongside the best catalog it could recover.
package catalog
