package news

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pders01/newsd/internal/auth"
	"github.com/pders01/newsd/internal/feed"
	"github.com/pders01/newsd/internal/provider"
	"github.com/pders01/newsd/internal/search"
	"github.com/pders01/newsd/internal/storage"
)

// topicFetcher serves fixed articles per topic.
type topicFetcher struct {
	mu       sync.Mutex
	articles map[string][]provider.RawArticle
	calls    []string
}

func (f *topicFetcher) set(topic string, articles ...provider.RawArticle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.articles == nil {
		f.articles = make(map[string][]provider.RawArticle)
	}
	f.articles[topic] = articles
}

func (f *topicFetcher) FetchTopHeadlines(_ context.Context, topic string) ([]provider.RawArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, topic)
	articles, ok := f.articles[topic]
	if !ok {
		return nil, errors.New("unknown topic")
	}
	return articles, nil
}

func (f *topicFetcher) topicsFetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fixture struct {
	svc     *Service
	cache   *feed.Cache
	fetcher *topicFetcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fetcher := &topicFetcher{}
	cache := feed.NewCache(fetcher)
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	svc, err := NewService(Deps{
		Cache:      cache,
		Tokens:     tokens,
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, cache: cache, fetcher: fetcher}
}

func (f *fixture) signup(t *testing.T, email string, prefs []string) {
	t.Helper()
	require.NoError(t, f.svc.Signup(SignupRequest{
		Name:        "Test User",
		Email:       email,
		Password:    "password",
		Preferences: prefs,
	}))
}

func articleIDs(articles []storage.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.ID
	}
	return out
}

func TestNewService_RequiresCacheAndTokens(t *testing.T) {
	_, err := NewService(Deps{})
	assert.Error(t, err)

	_, err = NewService(Deps{Cache: feed.NewCache(&topicFetcher{})})
	assert.Error(t, err)
}

func TestService_UnknownUserIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const ghost = "ghost@example.com"

	_, err := f.svc.GetNews(ctx, ghost)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, f.svc.MarkRead(ghost, "1"), ErrUnauthorized)
	assert.ErrorIs(t, f.svc.MarkFavorite(ghost, "1"), ErrUnauthorized)
	_, err = f.svc.GetRead(ghost)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.GetFavorites(ghost)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.SearchNews(ctx, ghost, "go")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.SearchNewsRanked(ctx, ghost, "go", 10)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.GetPreferences(ghost)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, f.svc.UpdatePreferences(ghost, []string{"tech"}), ErrUnauthorized)

	// identity is checked before the cache is touched
	assert.Empty(t, f.fetcher.topicsFetched())
}

func TestService_FavoritesScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const email = "ada@example.com"
	f.signup(t, email, []string{"tech"})

	f.fetcher.set("tech", provider.RawArticle{ID: "1", Title: "Tech story"})
	f.fetcher.set("sports", provider.RawArticle{ID: "2", Title: "Sports story"})
	_, err := f.cache.Refresh(ctx, []string{"tech", "sports"})
	require.NoError(t, err)

	news, err := f.svc.GetNews(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, articleIDs(news))

	require.NoError(t, f.svc.MarkFavorite(email, "1"))
	favs, err := f.svc.GetFavorites(email)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, articleIDs(favs))

	// the next refresh drops article 1
	f.fetcher.set("tech")
	_, err = f.cache.Refresh(ctx, []string{"tech", "sports"})
	require.NoError(t, err)
	require.Equal(t, []string{"2"}, articleIDs(f.cache.Snapshot().Articles))

	favs, err = f.svc.GetFavorites(email)
	require.NoError(t, err)
	assert.NotNil(t, favs)
	assert.Empty(t, favs)
}

func TestService_MarkReadIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const email = "ada@example.com"
	f.signup(t, email, []string{"tech"})
	f.fetcher.set("tech",
		provider.RawArticle{ID: "a", Title: "A"},
		provider.RawArticle{ID: "b", Title: "B"},
	)
	_, err := f.svc.GetNews(ctx, email)
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkRead(email, "b"))
	once, err := f.svc.GetRead(email)
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkRead(email, "b"))
	twice, err := f.svc.GetRead(email)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"b"}, articleIDs(twice))

	// unknown ids are accepted and silently unresolvable
	require.NoError(t, f.svc.MarkRead(email, "does-not-exist"))
	read, err := f.svc.GetRead(email)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, articleIDs(read))
}

func TestService_ProjectionUsesSnapshotOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const email = "ada@example.com"
	f.signup(t, email, []string{"tech"})
	f.fetcher.set("tech",
		provider.RawArticle{ID: "a", Title: "A"},
		provider.RawArticle{ID: "b", Title: "B"},
		provider.RawArticle{ID: "c", Title: "C"},
	)
	_, err := f.svc.GetNews(ctx, email)
	require.NoError(t, err)

	for _, id := range []string{"c", "a"} {
		require.NoError(t, f.svc.MarkFavorite(email, id))
	}
	favs, err := f.svc.GetFavorites(email)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, articleIDs(favs))

	read, err := f.svc.GetRead(email)
	require.NoError(t, err)
	assert.Empty(t, read, "read and favorites are independent")
}

func TestService_GetNews(t *testing.T) {
	t.Run("no preferences", func(t *testing.T) {
		f := newFixture(t)
		f.signup(t, "empty@example.com", []string{})

		_, err := f.svc.GetNews(context.Background(), "empty@example.com")
		assert.ErrorIs(t, err, ErrNoPreferences)
		assert.Empty(t, f.fetcher.topicsFetched())
	})

	t.Run("refreshes stale cache with the user's topics", func(t *testing.T) {
		f := newFixture(t)
		f.signup(t, "ada@example.com", []string{"science", "health", "science"})
		f.fetcher.set("science", provider.RawArticle{ID: "s", Title: "Science"})
		f.fetcher.set("health", provider.RawArticle{ID: "h", Title: "Health"})

		news, err := f.svc.GetNews(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"s", "h"}, articleIDs(news))
		assert.ElementsMatch(t, []string{"science", "health"}, f.fetcher.topicsFetched())

		// fresh cache is served without refetching
		_, err = f.svc.GetNews(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.Len(t, f.fetcher.topicsFetched(), 2)
	})

	t.Run("upstream failure degrades to empty list", func(t *testing.T) {
		f := newFixture(t)
		f.signup(t, "ada@example.com", []string{"weather"})

		news, err := f.svc.GetNews(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.NotNil(t, news)
		assert.Empty(t, news)
	})
}

func TestService_SearchNews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "ada@example.com", []string{"tech"})
	f.signup(t, "none@example.com", []string{})

	f.fetcher.set("tech",
		provider.RawArticle{ID: "1", Title: "Go generics deep dive", Description: "type parameters"},
		provider.RawArticle{ID: "2", Title: "Rust borrow checker", Description: "ownership and GO-style channels"},
		provider.RawArticle{ID: "3", Title: "Python typing"},
	)
	f.fetcher.set("general", provider.RawArticle{ID: "g", Title: "General go news"})

	_, err := f.svc.SearchNews(ctx, "ada@example.com", "   ")
	assert.ErrorIs(t, err, ErrMissingKeyword)
	_, err = f.svc.SearchNewsRanked(ctx, "ada@example.com", "", 5)
	assert.ErrorIs(t, err, ErrMissingKeyword)

	results, err := f.svc.SearchNews(ctx, "ada@example.com", "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, articleIDs(results))

	// users without preferences refresh the default topic once the cache is stale
	f2 := newFixture(t)
	f2.signup(t, "none@example.com", []string{})
	f2.fetcher.set("general", provider.RawArticle{ID: "g", Title: "General go news"})
	results, err = f2.svc.SearchNews(ctx, "none@example.com", "GO")
	require.NoError(t, err)
	assert.Equal(t, []string{"g"}, articleIDs(results))
	assert.Equal(t, []string{"general"}, f2.fetcher.topicsFetched())
}

func TestService_SearchNewsRanked(t *testing.T) {
	fetcher := &topicFetcher{}
	fetcher.set("tech",
		provider.RawArticle{ID: "desc", Title: "Weekly roundup", Description: "a note about kubernetes"},
		provider.RawArticle{ID: "title", Title: "Kubernetes release", Description: "containers"},
	)
	idx, err := search.NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	cache := feed.NewCache(fetcher, feed.WithListener(idx.OnSnapshot))
	tokens, err := auth.NewTokens("s", time.Hour)
	require.NoError(t, err)
	svc, err := NewService(Deps{Cache: cache, Tokens: tokens, Ranker: idx, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	require.NoError(t, svc.Signup(SignupRequest{Name: "A", Email: "a@example.com", Password: "pw", Preferences: []string{"tech"}}))

	results, err := svc.SearchNewsRanked(context.Background(), "a@example.com", "kubernetes", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "desc"}, articleIDs(results))
}

func TestService_Signup(t *testing.T) {
	tests := []struct {
		name    string
		req     SignupRequest
		wantErr error
	}{
		{"missing name", SignupRequest{Email: "a@example.com", Password: "pw"}, ErrMissingFields},
		{"missing email", SignupRequest{Name: "A", Password: "pw"}, ErrMissingFields},
		{"missing password", SignupRequest{Name: "A", Email: "a@example.com"}, ErrMissingFields},
		{"bad email", SignupRequest{Name: "A", Email: "nope", Password: "pw"}, ErrInvalidInput},
		{"bad topic", SignupRequest{Name: "A", Email: "a@example.com", Password: "pw", Preferences: []string{"sci fi"}}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			err := f.svc.Signup(tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("default preferences", func(t *testing.T) {
		f := newFixture(t)
		f.signup(t, "Ada@Example.com", nil)

		prefs, err := f.svc.GetPreferences("ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"movies", "comics"}, prefs)
	})

	t.Run("explicit empty preferences are kept", func(t *testing.T) {
		f := newFixture(t)
		f.signup(t, "ada@example.com", []string{})

		prefs, err := f.svc.GetPreferences("ada@example.com")
		require.NoError(t, err)
		assert.NotNil(t, prefs)
		assert.Empty(t, prefs)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newFixture(t)
		f.signup(t, "ada@example.com", nil)
		err := f.svc.Signup(SignupRequest{Name: "Other", Email: "ADA@example.com", Password: "x"})
		assert.ErrorIs(t, err, storage.ErrUserExists)
	})

	t.Run("password is hashed", func(t *testing.T) {
		f := newFixture(t)
		f.signup(t, "ada@example.com", nil)
		u, err := f.svc.Accounts().GetUser("ada@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, "password", u.PasswordHash)
		assert.True(t, auth.CheckPasswordHash("password", u.PasswordHash))
	})
}

func TestService_LoginAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "ada@example.com", nil)

	token, err := f.svc.Login("ADA@example.com", "password")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	email, err := f.svc.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", email)

	_, err = f.svc.Authenticate("Bearer garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = f.svc.Login("ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login("nobody@example.com", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login("", "password")
	assert.ErrorIs(t, err, ErrMissingFields)
	_, err = f.svc.Login("ada@example.com", "")
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestService_UpdatePreferences(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "ada@example.com", nil)

	require.NoError(t, f.svc.UpdatePreferences("ada@example.com", []string{" Science ", "health"}))
	prefs, err := f.svc.GetPreferences("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"science", "health"}, prefs)

	assert.ErrorIs(t, f.svc.UpdatePreferences("ada@example.com", nil), ErrInvalidInput)
	assert.ErrorIs(t, f.svc.UpdatePreferences("ada@example.com", []string{"bad/topic"}), ErrInvalidInput)

	require.NoError(t, f.svc.UpdatePreferences("ada@example.com", []string{}))
	_, err = f.svc.GetNews(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, ErrNoPreferences)
}

func TestService_RecordsActivity(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@example.com", []string{"tech", "science"})
	f.signup(t, "b@example.com", []string{"science", "sports"})

	_, _ = f.svc.GetPreferences("a@example.com")
	_, _ = f.svc.GetRead("b@example.com")

	assert.Equal(t, []string{"tech", "science", "sports"}, f.svc.Activity().Topics(nil))
	// window was drained; nobody active falls back to the default topic
	assert.Equal(t, []string{"general"}, f.svc.Activity().Topics(nil))
}
