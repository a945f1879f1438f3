package storage

import (
	"time"
)

type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	URL         string    `json:"url,omitempty"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// Snapshot is one published view of the news cache. It is never mutated after
// publication; a refresh builds a new Snapshot and swaps it in.
type Snapshot struct {
	Articles  []Article `json:"articles"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Empty reports whether the snapshot holds no articles. A nil snapshot is empty.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Articles) == 0
}

// Len returns the number of articles in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Articles)
}

// Select returns the articles whose IDs are in ids, in snapshot order.
// IDs the snapshot does not contain are skipped.
func (s *Snapshot) Select(ids map[string]struct{}) []Article {
	out := []Article{}
	if s == nil || len(ids) == 0 {
		return out
	}
	for _, a := range s.Articles {
		if _, ok := ids[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}

type User struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Preferences  []string `json:"preferences"`
}

// Topics returns the user's preferences with duplicates and blanks removed,
// keeping first-seen order.
func (u User) Topics() []string {
	return UniqueTopics(u.Preferences)
}

// UniqueTopics deduplicates topics preserving order and dropping empty entries.
func UniqueTopics(topics []string) []string {
	seen := make(map[string]bool, len(topics))
	result := make([]string, 0, len(topics))
	for _, t := range topics {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		result = append(result, t)
	}
	return result
}
