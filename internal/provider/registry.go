package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

const DefaultUserAgent = "newsd/1.0 (news aggregator; github.com/pders01/newsd)"

// Registry routes each category to the best registered provider.
// It satisfies the fetcher contract the news cache depends on.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	client    *http.Client
	userAgent string
}

// NewRegistry creates a registry whose shared HTTP client uses timeout.
func NewRegistry(timeout time.Duration, userAgent string) *Registry {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Registry{
		providers: make([]Provider, 0),
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
	}
}

// Client returns the HTTP client shared by every provider.
func (r *Registry) Client() *http.Client {
	return r.client
}

func (r *Registry) UserAgent() string {
	return r.userAgent
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// FindProvider returns the highest-priority provider that can handle
// category, or nil. Ties go to the provider registered first.
func (r *Registry) FindProvider(category string) Provider {
	category = strings.ToLower(strings.TrimSpace(category))

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Provider
	highestPriority := -1
	for _, p := range r.providers {
		if p.CanHandle(category) && p.Priority() > highestPriority {
			best = p
			highestPriority = p.Priority()
		}
	}
	return best
}

func (r *Registry) FetchTopHeadlines(ctx context.Context, category string) ([]RawArticle, error) {
	p := r.FindProvider(category)
	if p == nil {
		return nil, fmt.Errorf("%w %q", ErrNoProvider, category)
	}
	articles, err := p.FetchTopHeadlines(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	return articles, nil
}

// ListProviders returns a copy of the registered providers.
func (r *Registry) ListProviders() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Provider(nil), r.providers...)
}

// Len reports how many providers are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
