package provider

import (
	"context"
	_ "embed"
	"fmt"
	"html"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/mmcdole/gofeed"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"github.com/pders01/newsd/internal/logging"
	"github.com/pders01/newsd/internal/validation"
)

//go:embed topics.toml
var defaultTopicsTOML []byte

const defaultItemsPerFeed = 10

type topicsFile struct {
	Topics map[string][]string `toml:"topics"`
}

// LoadTopicFeeds returns the topic to feed URL mapping. The embedded defaults
// are loaded first; a non-empty path overrides them topic by topic.
func LoadTopicFeeds(path string) (map[string][]string, error) {
	var defaults topicsFile
	if err := toml.Unmarshal(defaultTopicsTOML, &defaults); err != nil {
		return nil, fmt.Errorf("parsing embedded topics: %w", err)
	}
	feeds := normalizeTopicKeys(defaults.Topics)

	if path == "" {
		return feeds, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topics file: %w", err)
	}
	var override topicsFile
	if err := toml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing topics file %s: %w", path, err)
	}
	for topic, urls := range normalizeTopicKeys(override.Topics) {
		feeds[topic] = urls
	}
	return feeds, nil
}

func normalizeTopicKeys(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = append([]string(nil), v...)
	}
	return out
}

type RSSOptions struct {
	// Feeds maps a topic to its feed URLs.
	Feeds        map[string][]string
	ItemsPerFeed int
	// Validator checks feed URLs; nil uses the strict upstream validator.
	Validator *validation.UpstreamURLValidator
}

// RSS aggregates RSS/Atom/JSON feeds per topic. A topic fails only when
// every one of its feeds fails.
type RSS struct {
	feeds        map[string][]string
	itemsPerFeed int
	client       *http.Client
	userAgent    string
}

func NewRSS(opts RSSOptions, client *http.Client, userAgent string) *RSS {
	v := opts.Validator
	if v == nil {
		v = validation.NewUpstreamURLValidator()
	}
	if opts.ItemsPerFeed <= 0 {
		opts.ItemsPerFeed = defaultItemsPerFeed
	}
	if client == nil {
		client = http.DefaultClient
	}

	feeds := make(map[string][]string, len(opts.Feeds))
	for topic, urls := range normalizeTopicKeys(opts.Feeds) {
		for _, u := range urls {
			normalized, err := v.ValidateAndNormalize(u)
			if err != nil {
				logging.Warnf("rss: skipping feed %q for topic %s: %v", u, topic, err)
				continue
			}
			feeds[topic] = append(feeds[topic], normalized)
		}
	}

	return &RSS{
		feeds:        feeds,
		itemsPerFeed: opts.ItemsPerFeed,
		client:       client,
		userAgent:    userAgent,
	}
}

func (r *RSS) Name() string { return "rss" }

func (r *RSS) Priority() int { return 50 }

func (r *RSS) CanHandle(category string) bool {
	return len(r.feeds[category]) > 0
}

// Topics returns the topics with at least one valid feed, sorted.
func (r *RSS) Topics() []string {
	topics := make([]string, 0, len(r.feeds))
	for t := range r.feeds {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

func (r *RSS) FetchTopHeadlines(ctx context.Context, category string) ([]RawArticle, error) {
	urls := r.feeds[category]
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoProvider, category)
	}

	results := make([][]RawArticle, len(urls))
	errs := make([]error, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			results[i], errs[i] = r.fetchFeed(ctx, u)
		}(i, u)
	}
	wg.Wait()

	var articles []RawArticle
	var combined error
	failed := 0
	for i := range urls {
		if errs[i] != nil {
			failed++
			combined = multierr.Append(combined, fmt.Errorf("%s: %w", urls[i], errs[i]))
			continue
		}
		articles = append(articles, results[i]...)
	}

	if failed == len(urls) {
		return nil, combined
	}
	if combined != nil {
		logging.Warnf("rss: %d of %d feeds failed for %s: %v", failed, len(urls), category, combined)
	}
	return articles, nil
}

func (r *RSS) fetchFeed(ctx context.Context, feedURL string) ([]RawArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, application/feed+json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	source := strings.TrimSpace(feed.Title)
	items := feed.Items
	if len(items) > r.itemsPerFeed {
		items = items[:r.itemsPerFeed]
	}

	articles := make([]RawArticle, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		a := RawArticle{
			Title:       title,
			Description: plainText(item.Description),
			URL:         item.Link,
			Source:      source,
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			a.PublishedAt = *item.UpdatedParsed
		}
		articles = append(articles, a)
	}
	return articles, nil
}

var (
	tagRegex   = regexp.MustCompile(`<[^>]*>`)
	spaceRegex = regexp.MustCompile(`\s+`)
)

// plainText strips markup from feed descriptions so keyword search matches
// what a reader sees.
func plainText(s string) string {
	s = tagRegex.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}
