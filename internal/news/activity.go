package news

import (
	"sync"

	"github.com/pders01/newsd/internal/feed"
	"github.com/pders01/newsd/internal/storage"
)

// ActivityTracker collects the preferences of users seen since the last
// scheduled refresh. As a feed.TopicSource it refreshes their union, falling
// back to the first-article heuristic when nobody was active.
type ActivityTracker struct {
	mu       sync.Mutex
	topics   []string
	seen     map[string]struct{}
	fallback feed.TopicSource
}

func NewActivityTracker(defaultTopic string) *ActivityTracker {
	return &ActivityTracker{
		seen:     make(map[string]struct{}),
		fallback: feed.FirstArticleTopics{Default: defaultTopic},
	}
}

// Record adds topics to the current window.
func (t *ActivityTracker) Record(topics []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		if _, ok := t.seen[topic]; ok {
			continue
		}
		t.seen[topic] = struct{}{}
		t.topics = append(t.topics, topic)
	}
}

// Drain returns the recorded topics in first-seen order and starts a new window.
func (t *ActivityTracker) Drain() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.topics
	t.topics = nil
	t.seen = make(map[string]struct{})
	return out
}

func (t *ActivityTracker) Topics(current *storage.Snapshot) []string {
	if topics := t.Drain(); len(topics) > 0 {
		return topics
	}
	return t.fallback.Topics(current)
}
