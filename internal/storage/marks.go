package storage

import "sync"

// MarkStore tracks which article IDs each user has read or favorited.
// Sets only grow. IDs are not checked against any snapshot, so they may
// outlive the article they referred to.
type MarkStore struct {
	mu    sync.RWMutex
	users map[string]*userMarks
}

type userMarks struct {
	mu        sync.Mutex
	read      map[string]struct{}
	favorites map[string]struct{}
}

func NewMarkStore() *MarkStore {
	return &MarkStore{users: make(map[string]*userMarks)}
}

func (s *MarkStore) MarkArticleRead(email, articleID string) {
	m := s.marksFor(email)
	m.mu.Lock()
	m.read[articleID] = struct{}{}
	m.mu.Unlock()
}

func (s *MarkStore) MarkArticleFavorite(email, articleID string) {
	m := s.marksFor(email)
	m.mu.Lock()
	m.favorites[articleID] = struct{}{}
	m.mu.Unlock()
}

// ReadIDs returns a copy of the user's read set.
func (s *MarkStore) ReadIDs(email string) map[string]struct{} {
	m := s.lookup(email)
	if m == nil {
		return map[string]struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySet(m.read)
}

// FavoriteIDs returns a copy of the user's favorite set.
func (s *MarkStore) FavoriteIDs(email string) map[string]struct{} {
	m := s.lookup(email)
	if m == nil {
		return map[string]struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySet(m.favorites)
}

func (s *MarkStore) lookup(email string) *userMarks {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[email]
}

// marksFor returns the per-user entry, creating it on first use.
func (s *MarkStore) marksFor(email string) *userMarks {
	if m := s.lookup(email); m != nil {
		return m
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.users[email]; ok {
		return m
	}
	m := &userMarks{
		read:      make(map[string]struct{}),
		favorites: make(map[string]struct{}),
	}
	s.users[email] = m
	return m
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
