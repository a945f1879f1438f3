package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/newsd/internal/logging"
	"github.com/pders01/newsd/internal/storage"
)

const defaultLimit = 20

// Index is an in-memory bleve index over the latest published snapshot.
// Each publish builds a fresh index and swaps it in; searches in progress
// finish against the index they started on.
type Index struct {
	mu      sync.RWMutex
	idx     bleve.Index
	mapping mapping.IndexMapping
}

// NewIndex creates an empty in-memory index.
func NewIndex() (*Index, error) {
	im := buildIndexMapping()
	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}
	return &Index{idx: idx, mapping: im}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = false
	title.IncludeTermVectors = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = false
	desc.IncludeTermVectors = false

	category := bleve.NewKeywordFieldMapping()
	category.Store = false

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("category", category)

	im.DefaultMapping = dm
	return im
}

// OnSnapshot rebuilds the index from snap. It matches feed.Listener.
func (x *Index) OnSnapshot(snap *storage.Snapshot) {
	if err := x.Rebuild(snap); err != nil {
		logging.Errorf("search index rebuild failed: %v", err)
	}
}

// Rebuild replaces the index contents with the articles of snap.
func (x *Index) Rebuild(snap *storage.Snapshot) error {
	next, err := bleve.NewMemOnly(x.mapping)
	if err != nil {
		return fmt.Errorf("creating search index: %w", err)
	}

	if !snap.Empty() {
		batch := next.NewBatch()
		for _, a := range snap.Articles {
			if err := batch.Index(a.ID, map[string]any{
				"title":       a.Title,
				"description": a.Description,
				"category":    a.Category,
			}); err != nil {
				_ = next.Close()
				return fmt.Errorf("indexing article %s: %w", a.ID, err)
			}
		}
		if err := next.Batch(batch); err != nil {
			_ = next.Close()
			return fmt.Errorf("indexing snapshot: %w", err)
		}
	}

	x.mu.Lock()
	old := x.idx
	x.idx = next
	x.mu.Unlock()

	return old.Close()
}

// Search ranks articles against query and resolves hits through snap, so
// callers only ever see articles of the snapshot they hold. Queries shorter
// than two characters return nothing.
func (x *Index) Search(snap *storage.Snapshot, query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 || snap.Empty() {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	// Tokenize input and build an OR of per-term matches across key fields with boosts
	tokens := tokenize(query)
	var qs []bleveQuery.Query
	for _, tok := range tokens {
		// title^4
		qt := bleve.NewMatchQuery(tok)
		qt.SetField("title")
		qt.SetBoost(4.0)
		qs = append(qs, qt)
		qtp := bleve.NewPrefixQuery(tok)
		qtp.SetField("title")
		qtp.SetBoost(3.5)
		qs = append(qs, qtp)
		// description^2
		qd := bleve.NewMatchQuery(tok)
		qd.SetField("description")
		qd.SetBoost(2.0)
		qs = append(qs, qd)
		qdp := bleve.NewPrefixQuery(tok)
		qdp.SetField("description")
		qdp.SetBoost(1.8)
		qs = append(qs, qdp)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)

	x.mu.RLock()
	res, err := x.idx.Search(req)
	x.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	byID := make(map[string]storage.Article, snap.Len())
	for _, a := range snap.Articles {
		byID[a.ID] = a
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		a, ok := byID[h.ID]
		if !ok {
			continue
		}
		out = append(out, &Result{Article: a, Score: h.Score})
	}
	return out, nil
}

// DocCount reports total documents in the index.
func (x *Index) DocCount() (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n, err := x.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close releases the current index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.idx.Close()
}
