package provider

import (
	"context"
	"errors"
	"time"
)

// ErrNoProvider is returned when no registered provider handles a category.
var ErrNoProvider = errors.New("provider: no provider for category")

// RawArticle is an upstream record before the cache assigns identifiers.
// ID is set only when the upstream has a natural identifier of its own.
type RawArticle struct {
	ID          string
	Title       string
	Description string
	URL         string
	Source      string
	PublishedAt time.Time
}

// Provider fetches top headlines for a topic category from one upstream.
type Provider interface {
	// Name returns the provider name for identification
	Name() string

	// CanHandle returns true if this provider serves the given category
	CanHandle(category string) bool

	// FetchTopHeadlines returns the current headlines for category.
	FetchTopHeadlines(ctx context.Context, category string) ([]RawArticle, error)

	// Priority returns the priority of this provider (higher = higher priority)
	// Used when multiple providers can handle the same category
	Priority() int
}
