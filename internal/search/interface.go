package search

import "github.com/pders01/newsd/internal/storage"

// Result is one ranked hit.
type Result struct {
	Article storage.Article
	Score   float64
	Matches []Match
}

// Match represents where text was found
type Match struct {
	Field  string // "title" or "description"
	Text   string // matched text snippet
	Weight float64
}

// Searcher ranks the articles of a snapshot against a free-text query.
// Hits are always articles of the given snapshot.
type Searcher interface {
	Search(snap *storage.Snapshot, query string, limit int) ([]*Result, error)
}

// DocCounter reports how many documents an index holds.
type DocCounter interface {
	DocCount() (int, error)
}
