package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/newsd/internal/storage"
)

func TestIndex_IndexesAndSearches(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	snap := &storage.Snapshot{Articles: []storage.Article{
		{ID: "a1", Title: "Hello World", Description: "greeting article", Category: "general"},
		{ID: "a2", Title: "Golang Tips", Description: "bleve and search", Category: "tech"},
		{ID: "a3", Title: "Search engines compared", Description: "ranking basics", Category: "tech"},
	}}
	idx.OnSnapshot(snap)

	count, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	res, err := idx.Search(snap, "Golang", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a2", res[0].Article.ID)
	assert.Equal(t, "tech", res[0].Article.Category)

	// title hits outrank description hits
	res, err = idx.Search(snap, "search", 10)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "a3", res[0].Article.ID)
	assert.Equal(t, "a2", res[1].Article.ID)

	// prefix matching
	res, err = idx.Search(snap, "greet", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a1", res[0].Article.ID)
}

func TestIndex_ProjectsThroughCallerSnapshot(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	indexed := &storage.Snapshot{Articles: []storage.Article{
		{ID: "keep", Title: "Budget vote"},
		{ID: "gone", Title: "Budget leak"},
	}}
	require.NoError(t, idx.Rebuild(indexed))

	held := &storage.Snapshot{Articles: []storage.Article{{ID: "keep", Title: "Budget vote"}}}
	res, err := idx.Search(held, "budget", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "keep", res[0].Article.ID)
}

func TestIndex_RebuildReplacesContents(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	first := &storage.Snapshot{Articles: []storage.Article{{ID: "1", Title: "Alpha story"}}}
	second := &storage.Snapshot{Articles: []storage.Article{{ID: "2", Title: "Beta story"}}}

	require.NoError(t, idx.Rebuild(first))
	require.NoError(t, idx.Rebuild(second))

	count, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	res, err := idx.Search(second, "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, res)

	require.NoError(t, idx.Rebuild(nil))
	count, err = idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIndex_ShortOrEmpty(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	snap := &storage.Snapshot{Articles: []storage.Article{{ID: "1", Title: "x"}}}
	require.NoError(t, idx.Rebuild(snap))

	for _, q := range []string{"", " ", "x"} {
		res, err := idx.Search(snap, q, 10)
		require.NoError(t, err)
		assert.NotNil(t, res)
		assert.Empty(t, res)
	}

	res, err := idx.Search(nil, "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearchersShareContract(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	var _ Searcher = idx
	var _ Searcher = NewEngine()
	var _ DocCounter = idx
}
