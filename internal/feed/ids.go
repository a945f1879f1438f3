package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/pders01/newsd/internal/provider"
	"github.com/pders01/newsd/internal/storage"
)

// positionalIDPrefix keeps positional IDs apart from upstream IDs.
const positionalIDPrefix = "pos-"

// buildArticles flattens per-topic results in topic order and assigns IDs.
// When two records resolve to the same ID the first one wins.
func buildArticles(topics []string, results [][]provider.RawArticle) []storage.Article {
	total := 0
	for _, r := range results {
		total += len(r)
	}

	articles := make([]storage.Article, 0, total)
	seen := make(map[string]struct{}, total)
	pos := 0
	for i, topic := range topics {
		for _, raw := range results[i] {
			id := articleID(raw, pos)
			pos++
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			articles = append(articles, storage.Article{
				ID:          id,
				Title:       raw.Title,
				Description: raw.Description,
				Category:    topic,
				URL:         raw.URL,
				Source:      raw.Source,
				PublishedAt: raw.PublishedAt,
			})
		}
	}
	return articles
}

// articleID prefers the upstream identifier, then a hash of the URL, then a
// hash of title and source. Hashed IDs survive refreshes, so read and
// favorite marks keep resolving. The positional fallback does not.
func articleID(raw provider.RawArticle, pos int) string {
	switch {
	case raw.ID != "":
		return raw.ID
	case raw.URL != "":
		return hashID(raw.URL)
	case raw.Title != "" || raw.Source != "":
		return hashID(raw.Title + "|" + raw.Source)
	default:
		return positionalIDPrefix + strconv.Itoa(pos)
	}
}

func hashID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
