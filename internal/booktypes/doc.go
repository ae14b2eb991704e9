// Package booktypes holds the file format tables shared by the scanner,
// the covers writer and the HTTP handlers. It has no dependencies beyond
// the standard library so any package can import it.
//
//	ext := strings.ToLower(filepath.Ext(name))
//	if booktypes.IsBook(ext) {
//	    // candidate for the catalog
//	}
package booktypes
