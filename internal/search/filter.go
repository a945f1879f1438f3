package search

import (
	"strings"

	"github.com/pders01/newsd/internal/storage"
)

// FilterByPreferences returns the articles whose category is one of
// preferences, in snapshot order. The result is never nil.
func FilterByPreferences(snap *storage.Snapshot, preferences []string) []storage.Article {
	out := []storage.Article{}
	if snap.Empty() || len(preferences) == 0 {
		return out
	}

	wanted := make(map[string]struct{}, len(preferences))
	for _, p := range preferences {
		wanted[p] = struct{}{}
	}
	for _, a := range snap.Articles {
		if _, ok := wanted[a.Category]; ok {
			out = append(out, a)
		}
	}
	return out
}

// SearchByKeyword returns the articles whose title or description contains
// keyword, ignoring case, in snapshot order. An empty description never
// matches. The result is never nil.
func SearchByKeyword(snap *storage.Snapshot, keyword string) []storage.Article {
	out := []storage.Article{}
	if snap.Empty() || keyword == "" {
		return out
	}

	needle := strings.ToLower(keyword)
	for _, a := range snap.Articles {
		if containsFold(a.Title, needle) || containsFold(a.Description, needle) {
			out = append(out, a)
		}
	}
	return out
}

func containsFold(text, lowerNeedle string) bool {
	return text != "" && strings.Contains(strings.ToLower(text), lowerNeedle)
}
