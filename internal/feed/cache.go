package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pders01/newsd/internal/logging"
	"github.com/pders01/newsd/internal/provider"
	"github.com/pders01/newsd/internal/storage"
)

const (
	DefaultTTL                  = 5 * time.Minute
	DefaultFetchTimeout         = 10 * time.Second
	DefaultMaxConcurrentFetches = 5
)

// ErrUpstreamUnavailable is returned by Refresh when every topic fetch failed.
var ErrUpstreamUnavailable = errors.New("feed: all upstream fetches failed")

// Fetcher returns the current headlines for one topic.
type Fetcher interface {
	FetchTopHeadlines(ctx context.Context, category string) ([]provider.RawArticle, error)
}

// Listener is called with every newly published snapshot.
type Listener func(*storage.Snapshot)

// Cache holds the single process-wide news snapshot.
//
// Reads are lock-free: the current snapshot sits behind an atomic pointer and
// is never mutated after publication. Concurrent refreshes for the same topic
// set share one upstream fan-out; refreshes for different topic sets run one
// at a time so publishes never interleave.
type Cache struct {
	fetcher        Fetcher
	ttl            time.Duration
	fetchTimeout   time.Duration
	maxConcurrent  int
	emptyOnFailure bool
	now            func() time.Time

	current   atomic.Pointer[storage.Snapshot]
	group     singleflight.Group
	refreshMu sync.Mutex

	listeners   []Listener

	statsMu sync.Mutex
	stats   Stats
}

// Stats summarizes refresh activity for health checks and the dashboard.
type Stats struct {
	Refreshes   uint64    `json:"refreshes"`
	Failures    uint64    `json:"failures"`
	LastRefresh time.Time `json:"last_refresh"`
	LastError   string    `json:"last_error,omitempty"`
	Articles    int       `json:"articles"`
	FetchedAt   time.Time `json:"fetched_at"`
	Stale       bool      `json:"stale"`
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithFetchTimeout bounds each per-topic upstream call.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

func WithMaxConcurrentFetches(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithEmptyOnUpstreamFailure publishes an empty snapshot when every topic
// fails instead of keeping the previous one.
func WithEmptyOnUpstreamFailure(empty bool) Option {
	return func(c *Cache) {
		c.emptyOnFailure = empty
	}
}

func WithListener(l Listener) Option {
	return func(c *Cache) {
		if l != nil {
			c.listeners = append(c.listeners, l)
		}
	}
}

func NewCache(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher:       fetcher,
		ttl:           DefaultTTL,
		fetchTimeout:  DefaultFetchTimeout,
		maxConcurrent: DefaultMaxConcurrentFetches,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.current.Store(&storage.Snapshot{Articles: []storage.Article{}})
	return c
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Snapshot returns the current snapshot without refreshing. Never nil.
func (c *Cache) Snapshot() *storage.Snapshot {
	return c.current.Load()
}

// IsStale reports whether the snapshot is empty or older than the TTL.
func (c *Cache) IsStale() bool {
	snap := c.current.Load()
	return snap.Empty() || c.now().Sub(snap.FetchedAt) > c.ttl
}

// Refresh fetches topics in parallel and publishes the result. A failing
// topic contributes no articles and is only logged. When every topic fails
// the returned error wraps ErrUpstreamUnavailable.
//
// Callers asking for the same ordered topic list share one refresh. The same
// topics in another order run their own refresh after it, so every caller
// gets articles in the order it asked for.
//
// If ctx is cancelled the call returns early with the current snapshot, but
// the refresh itself keeps running for the other callers sharing it.
func (c *Cache) Refresh(ctx context.Context, topics []string) (*storage.Snapshot, error) {
	topics = storage.UniqueTopics(topics)
	if len(topics) == 0 {
		return c.Snapshot(), nil
	}

	ch := c.group.DoChan(flightKey(topics), func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), topics)
	})

	select {
	case res := <-ch:
		snap, _ := res.Val.(*storage.Snapshot)
		if snap == nil {
			snap = c.Snapshot()
		}
		return snap, res.Err
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

// EnsureFresh refreshes when the cache is stale and returns the snapshot to
// read from. Refresh errors are logged, never returned: callers degrade to
// whatever the cache holds.
func (c *Cache) EnsureFresh(ctx context.Context, topics []string) *storage.Snapshot {
	if !c.IsStale() {
		return c.Snapshot()
	}
	snap, err := c.Refresh(ctx, topics)
	if err != nil {
		logging.Warnf("cache refresh for %v failed: %v", topics, err)
	}
	return snap
}

func (c *Cache) refresh(ctx context.Context, topics []string) (*storage.Snapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	start := c.now()
	results := make([][]provider.RawArticle, len(topics))
	errs := make([]error, len(topics))

	var g errgroup.Group
	g.SetLimit(c.maxConcurrent)
	for i, topic := range topics {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
			defer cancel()

			articles, err := c.fetcher.FetchTopHeadlines(tctx, topic)
			if err != nil {
				errs[i] = fmt.Errorf("topic %s: %w", topic, err)
				return nil
			}
			results[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	combined := multierr.Combine(errs...)

	if failed == len(topics) {
		err := fmt.Errorf("%w: %w", ErrUpstreamUnavailable, combined)
		c.recordFailure(err)
		logging.Errorf("refresh of %v failed: %v", topics, combined)

		// Keeping the old snapshot lets readers see stale headlines instead of
		// nothing; it also stays stale, so the next read retries. The empty
		// variant matches services that prefer no news over old news.
		if !c.emptyOnFailure {
			return c.Snapshot(), err
		}
		snap := &storage.Snapshot{Articles: []storage.Article{}, FetchedAt: c.now()}
		c.publish(snap)
		return snap, err
	}

	if combined != nil {
		logging.Warnf("refresh: %d of %d topics failed: %v", failed, len(topics), combined)
	}

	snap := &storage.Snapshot{
		Articles:  buildArticles(topics, results),
		FetchedAt: c.now(),
	}
	c.publish(snap)
	c.recordSuccess(snap, combined)

	logging.WithFields(map[string]any{
		"topics":   strings.Join(topics, ","),
		"articles": snap.Len(),
		"took":     c.now().Sub(start).String(),
	}).Debugf("published snapshot")

	return snap, nil
}

func (c *Cache) publish(snap *storage.Snapshot) {
	c.current.Store(snap)

	for _, l := range c.listeners {
		l(snap)
	}
}

func (c *Cache) recordSuccess(snap *storage.Snapshot, partial error) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.Refreshes++
	c.stats.LastRefresh = snap.FetchedAt
	c.stats.LastError = ""
	if partial != nil {
		c.stats.LastError = partial.Error()
	}
}

func (c *Cache) recordFailure(err error) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.Failures++
	c.stats.LastRefresh = c.now()
	c.stats.LastError = err.Error()
}

// Stats returns a copy of the refresh counters together with the current
// snapshot's size and age.
func (c *Cache) Stats() Stats {
	c.statsMu.Lock()
	s := c.stats
	c.statsMu.Unlock()

	snap := c.Snapshot()
	s.Articles = snap.Len()
	s.FetchedAt = snap.FetchedAt
	s.Stale = c.IsStale()
	return s
}

// flightKey identifies an ordered topic list. Order is part of the key
// because it decides article order in the published snapshot.
func flightKey(topics []string) string {
	return strings.Join(topics, "\x00")
}
