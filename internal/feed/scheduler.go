package feed

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pders01/newsd/internal/logging"
	"github.com/pders01/newsd/internal/storage"
)

const DefaultTopic = "general"

// TopicSource picks the topics a scheduled refresh should fetch.
type TopicSource interface {
	Topics(current *storage.Snapshot) []string
}

// TopicSourceFunc adapts a function to TopicSource.
type TopicSourceFunc func(current *storage.Snapshot) []string

func (f TopicSourceFunc) Topics(current *storage.Snapshot) []string {
	return f(current)
}

// FirstArticleTopics refreshes the category of the snapshot's first article,
// or Default when the snapshot is empty.
type FirstArticleTopics struct {
	Default string
}

func (f FirstArticleTopics) Topics(current *storage.Snapshot) []string {
	if !current.Empty() && current.Articles[0].Category != "" {
		return []string{current.Articles[0].Category}
	}
	if f.Default == "" {
		return []string{DefaultTopic}
	}
	return []string{f.Default}
}

// Scheduler refreshes the cache on a fixed interval, independent of request
// traffic. A failed tick is logged and the next tick tries again.
type Scheduler struct {
	cache    *Cache
	source   TopicSource
	interval time.Duration
	ticks    atomic.Uint64
}

// NewScheduler returns a scheduler ticking every interval, or every cache TTL
// when interval is not positive.
func NewScheduler(cache *Cache, source TopicSource, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = cache.TTL()
	}
	if source == nil {
		source = FirstArticleTopics{Default: DefaultTopic}
	}
	return &Scheduler{
		cache:    cache,
		source:   source,
		interval: interval,
	}
}

func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Ticks returns how many refresh cycles have run.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks.Load()
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Infof("scheduler started, refreshing every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			logging.Infof("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one refresh cycle.
func (s *Scheduler) Tick(ctx context.Context) {
	s.ticks.Add(1)
	topics := s.source.Topics(s.cache.Snapshot())
	if len(topics) == 0 {
		return
	}
	if _, err := s.cache.Refresh(ctx, topics); err != nil {
		logging.Warnf("scheduled refresh of %v failed: %v", topics, err)
	}
}
