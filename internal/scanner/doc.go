// Package scanner enumerates candidate book files in a library directory.
//
// The directory is listed once when Candidates is called; a listing failure
// is returned as a *ScanError and is fatal to the run. The returned sequence
// then yields, lazily and in directory-listing order, the paths of regular
// files whose extension is supported. Directories, hidden entries and
// entries that cannot be stat'ed are skipped without failing the scan.
// Subdirectories are not descended into.
package scanner
