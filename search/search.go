// Package search keeps an in-memory full-text index of the content index
// and blog posts for the admin search box.
package search

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/eringen/saunasite/content"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

// KindPost marks hits that come from blog posts rather than index entries.
const KindPost = "post"

// Hit is one search result.
type Hit struct {
	URL   string  `json:"url"`
	Title string  `json:"title"`
	Kind  string  `json:"kind"`
	Score float64 `json:"score"`
}

// Index wraps a bleve in-memory index. Rebuild swaps in a fresh index so
// searches never see a half-built one.
type Index struct {
	mu  sync.RWMutex
	idx bleve.Index
}

// New returns an empty index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Rebuild replaces the indexed documents with entries and posts.
func (i *Index) Rebuild(entries []content.Entry, posts []content.Post) error {
	next, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("create search index: %w", err)
	}
	batch := next.NewBatch()
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.URL == "" {
			continue
		}
		seen[e.URL] = struct{}{}
		doc := map[string]interface{}{
			"url":      e.URL,
			"title":    e.Title,
			"kind":     string(e.PageType),
			"excerpt":  e.Excerpt,
			"keywords": strings.Join(e.MainKeywords, " "),
		}
		if e.ContentSummary != nil {
			doc["summary"] = *e.ContentSummary
		}
		if err := batch.Index(e.URL, doc); err != nil {
			next.Close()
			return fmt.Errorf("index %s: %w", e.URL, err)
		}
	}
	for _, p := range posts {
		if p.Slug == "" {
			continue
		}
		id := p.Link()
		// Index entries take precedence for the same URL.
		if _, ok := seen[id]; ok {
			continue
		}
		doc := map[string]interface{}{
			"url":     id,
			"title":   p.Title,
			"kind":    KindPost,
			"excerpt": p.Excerpt,
			"content": p.Content,
			"tags":    strings.Join(p.Tags, " "),
		}
		if err := batch.Index(id, doc); err != nil {
			next.Close()
			return fmt.Errorf("index %s: %w", id, err)
		}
	}
	if err := next.Batch(batch); err != nil {
		next.Close()
		return fmt.Errorf("commit search batch: %w", err)
	}

	i.mu.Lock()
	prev := i.idx
	i.idx = next
	i.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return nil
}

// ErrClosed is returned when searching a closed index.
var ErrClosed = errors.New("search: index closed")

// Search runs a match query. Blank queries return no hits.
func (i *Index) Search(q string, limit int) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(q))
	req.Size = limit
	req.Fields = []string{"url", "title", "kind"}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.idx == nil {
		return nil, ErrClosed
	}
	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{URL: h.ID, Score: h.Score}
		if title, ok := h.Fields["title"].(string); ok {
			hit.Title = title
		}
		if kind, ok := h.Fields["kind"].(string); ok {
			hit.Kind = kind
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count returns the number of indexed documents.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.idx == nil {
		return 0, ErrClosed
	}
	return i.idx.DocCount()
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.idx == nil {
		return nil
	}
	err := i.idx.Close()
	i.idx = nil
	return err
}
