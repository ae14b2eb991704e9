package catalog

// Entry is one cataloged book. Title is the sort key. Locations use
// forward slashes regardless of platform. CoverLocation is empty when no
// cover was written.
type Entry struct {
	Title          string `json:"title"`
	SourceLocation string `json:"sourceLocation"`
	CoverLocation  string `json:"coverLocation"`
}

// Catalog is an ordered sequence of entries, strictly increasing by Title.
type Catalog []Entry

// Titles returns the titles in catalog order.
func (c Catalog) Titles() []string {
	titles := make([]string, len(c))
	for i, e := range c {
		titles[i] = e.Title
	}
	return titles
}
