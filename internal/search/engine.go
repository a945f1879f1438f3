package search

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/pders01/newsd/internal/storage"
)

// Engine scores snapshot articles directly, without an index. It backs the
// ranked search when the bleve index is unavailable.
type Engine struct {
	now func() time.Time
}

// NewEngine creates a new search engine
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Search ranks the snapshot's articles by relevance to query.
func (e *Engine) Search(snap *storage.Snapshot, query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 || snap.Empty() {
		return []*Result{}, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}, nil
	}

	var results []*Result
	for _, article := range snap.Articles {
		if result := e.scoreArticle(article, terms); result != nil {
			results = append(results, result)
		}
	}

	// Sort by relevance score (highest first); ties keep snapshot order
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []*Result{}
	}
	return results, nil
}

func (e *Engine) scoreArticle(article storage.Article, terms []string) *Result {
	var matches []Match
	var totalScore float64

	// Search title (highest weight)
	if titleScore := scoreField(article.Title, terms, 4.0); titleScore > 0 {
		matches = append(matches, Match{
			Field:  "title",
			Text:   article.Title,
			Weight: titleScore,
		})
		totalScore += titleScore
	}

	if descScore := scoreField(article.Description, terms, 2.0); descScore > 0 {
		matches = append(matches, Match{
			Field:  "description",
			Text:   findBestSnippet(article.Description, terms, 150),
			Weight: descScore,
		})
		totalScore += descScore
	}

	if totalScore == 0 {
		return nil
	}

	if !article.PublishedAt.IsZero() {
		totalScore *= 1.0 + recencyBoost(e.now().Sub(article.PublishedAt))
	}

	return &Result{
		Article: article,
		Score:   totalScore,
		Matches: matches,
	}
}

// scoreField calculates relevance score for a field
func scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	var score float64
	matchedTerms := 0

	for _, term := range terms {
		// Exact phrase match (highest score)
		if strings.Contains(lower, term) {
			score += 2.0
			matchedTerms++
		}

		// Word boundary matches (medium score)
		for _, word := range words {
			switch {
			case word == term:
				score += 1.5
				matchedTerms++
			case strings.HasPrefix(word, term) || strings.HasSuffix(word, term):
				score += 1.0
				matchedTerms++
			case strings.Contains(word, term):
				score += 0.5
				matchedTerms++
			}
		}
	}

	// Boost score if multiple terms match
	if len(terms) > 1 && matchedTerms > 1 {
		score *= 1.0 + float64(matchedTerms)/float64(len(terms))
	}

	tf := float64(matchedTerms) / float64(len(words))
	score *= 1.0 + math.Log(1.0+tf)

	return score * weight
}

// findBestSnippet finds the most relevant text snippet containing search terms
func findBestSnippet(text string, terms []string, maxLength int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	windowSize := maxLength / 8 // Approximate words in snippet
	if windowSize >= len(words) {
		return truncate(text, maxLength)
	}

	bestScore := 0
	bestStart := 0
	for i := 0; i <= len(words)-windowSize; i++ {
		window := strings.ToLower(strings.Join(words[i:i+windowSize], " "))
		score := 0
		for _, term := range terms {
			if strings.Contains(window, term) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestStart = i
		}
	}

	return truncate(strings.Join(words[bestStart:bestStart+windowSize], " "), maxLength)
}

// tokenize lowercases text and splits it into terms of two or more letters
// or digits.
func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			if term := current.String(); len(term) > 1 { // Skip single chars
				terms = append(terms, term)
			}
			current.Reset()
		}
	}

	if current.Len() > 1 {
		terms = append(terms, current.String())
	}

	return terms
}

// truncate limits text length with ellipsis
func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-1]) + "…"
}

// recencyBoost gives up to 10% to articles from the last day, fading out
// over a week.
func recencyBoost(age time.Duration) float64 {
	const week = 7 * 24 * time.Hour
	switch {
	case age < 24*time.Hour:
		return 0.1
	case age < week:
		return 0.1 * float64(week-age) / float64(week)
	default:
		return 0
	}
}
