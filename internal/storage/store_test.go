package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountStore_CreateAndGetUser(t *testing.T) {
	store := NewAccountStore()

	user := User{
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		Preferences:  []string{"technology", "science"},
	}

	if err := store.CreateUser(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	retrieved, err := store.GetUser("ada@example.com")
	if err != nil {
		t.Fatalf("failed to get user: %v", err)
	}

	if retrieved.Name != user.Name {
		t.Errorf("expected Name %s, got %s", user.Name, retrieved.Name)
	}
	if retrieved.PasswordHash != user.PasswordHash {
		t.Errorf("expected PasswordHash %s, got %s", user.PasswordHash, retrieved.PasswordHash)
	}
	assert.Equal(t, user.Preferences, retrieved.Preferences)
}

func TestAccountStore_CreateUser_Duplicate(t *testing.T) {
	store := NewAccountStore()
	require.NoError(t, store.CreateUser(User{Email: "dup@example.com"}))

	err := store.CreateUser(User{Email: "dup@example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserExists))
}

func TestAccountStore_CreateUser_EmptyEmail(t *testing.T) {
	store := NewAccountStore()
	assert.Error(t, store.CreateUser(User{Name: "nobody"}))
}

func TestAccountStore_GetUser_NotFound(t *testing.T) {
	store := NewAccountStore()

	_, err := store.GetUser("missing@example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestAccountStore_ReturnsCopies(t *testing.T) {
	store := NewAccountStore()
	prefs := []string{"sports"}
	require.NoError(t, store.CreateUser(User{Email: "copy@example.com", Preferences: prefs}))

	prefs[0] = "mutated"
	u, err := store.GetUser("copy@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"sports"}, u.Preferences)

	u.Preferences[0] = "mutated-again"
	again, err := store.GetUser("copy@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"sports"}, again.Preferences)
}

func TestAccountStore_UpdatePreferences(t *testing.T) {
	store := NewAccountStore()
	require.NoError(t, store.CreateUser(User{Email: "pref@example.com", Preferences: []string{"movies"}}))

	require.NoError(t, store.UpdatePreferences("pref@example.com", []string{"health", "science"}))
	u, err := store.GetUser("pref@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"health", "science"}, u.Preferences)

	err = store.UpdatePreferences("ghost@example.com", []string{"x"})
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestAccountStore_Count(t *testing.T) {
	store := NewAccountStore()
	assert.Zero(t, store.Count())
	for _, email := range []string{"c@example.com", "a@example.com", "b@example.com"} {
		require.NoError(t, store.CreateUser(User{Email: email}))
	}
	assert.Equal(t, 3, store.Count())
}

func TestUser_Topics(t *testing.T) {
	tests := []struct {
		name     string
		prefs    []string
		expected []string
	}{
		{"no preferences", nil, []string{}},
		{"unique preferences", []string{"tech", "sports"}, []string{"tech", "sports"}},
		{"duplicates removed in order", []string{"tech", "sports", "tech"}, []string{"tech", "sports"}},
		{"blanks dropped", []string{"", "tech", ""}, []string{"tech"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := User{Preferences: tt.prefs}
			assert.Equal(t, tt.expected, u.Topics())
		})
	}
}

func TestSnapshot_Select(t *testing.T) {
	snap := &Snapshot{
		Articles: []Article{
			{ID: "1", Category: "tech"},
			{ID: "2", Category: "sports"},
			{ID: "3", Category: "tech"},
		},
		FetchedAt: time.Now(),
	}

	ids := map[string]struct{}{"3": {}, "1": {}, "gone": {}}
	got := snap.Select(ids)
	require.Len(t, got, 2)
	// snapshot order, not id insertion order
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	assert.NotNil(t, snap.Select(nil))
	assert.Empty(t, snap.Select(nil))

	var nilSnap *Snapshot
	assert.True(t, nilSnap.Empty())
	assert.Equal(t, 0, nilSnap.Len())
	assert.Empty(t, nilSnap.Select(ids))
}

func TestMarkStore_MarkReadIdempotent(t *testing.T) {
	store := NewMarkStore()

	store.MarkArticleRead("u@example.com", "a1")
	once := store.ReadIDs("u@example.com")
	store.MarkArticleRead("u@example.com", "a1")
	twice := store.ReadIDs("u@example.com")

	assert.Equal(t, once, twice)
	assert.Len(t, twice, 1)
}

func TestMarkStore_ReadAndFavoritesAreIndependent(t *testing.T) {
	store := NewMarkStore()

	store.MarkArticleRead("u@example.com", "a1")
	store.MarkArticleFavorite("u@example.com", "a2")

	assert.Equal(t, map[string]struct{}{"a1": {}}, store.ReadIDs("u@example.com"))
	assert.Equal(t, map[string]struct{}{"a2": {}}, store.FavoriteIDs("u@example.com"))
	assert.Empty(t, store.ReadIDs("other@example.com"))
	assert.Empty(t, store.FavoriteIDs("other@example.com"))
}

func TestMarkStore_ReturnsCopies(t *testing.T) {
	store := NewMarkStore()
	store.MarkArticleFavorite("u@example.com", "a1")

	ids := store.FavoriteIDs("u@example.com")
	ids["injected"] = struct{}{}

	assert.Len(t, store.FavoriteIDs("u@example.com"), 1)
}

func TestMarkStore_ConcurrentMarks(t *testing.T) {
	store := NewMarkStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.MarkArticleRead("same@example.com", fmt.Sprintf("article%d", i))
			store.MarkArticleFavorite(fmt.Sprintf("user%d@example.com", i%5), "shared")
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.ReadIDs("same@example.com"), 50)
	for i := 0; i < 5; i++ {
		assert.Len(t, store.FavoriteIDs(fmt.Sprintf("user%d@example.com", i)), 1)
	}
}
