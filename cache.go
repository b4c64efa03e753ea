package saunasite

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/eringen/saunasite/content"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = sql.ErrNoRows

// Snapshot is a consistent read of everything the public endpoints need.
// A table that failed to load is empty and its error is kept, so documents
// built from the other tables still render.
type Snapshot struct {
	Posts   []content.Post
	Entries []content.Entry
	Images  []content.GalleryImage
	Fetched time.Time

	postsErr   error
	entriesErr error
	imagesErr  error
}

// Err joins the per-table load errors.
func (s Snapshot) Err() error {
	return errors.Join(s.postsErr, s.entriesErr, s.imagesErr)
}

// ContentCache is an in-memory cache of published posts, the content index
// and published gallery images with TTL. Admin writes call Invalidate.
type ContentCache struct {
	mu       sync.RWMutex
	snap     *Snapshot
	ttl      time.Duration
	store    *Store
	onReload []func(Snapshot)
}

// NewContentCache creates a ContentCache backed by the given Store.
func NewContentCache(s *Store, ttl time.Duration) *ContentCache {
	return &ContentCache{store: s, ttl: ttl}
}

// OnReload registers fn to run, under the cache lock, after every reload.
func (c *ContentCache) OnReload(fn func(Snapshot)) {
	c.mu.Lock()
	c.onReload = append(c.onReload, fn)
	c.mu.Unlock()
}

func (c *ContentCache) valid() bool {
	return c.snap != nil && time.Since(c.snap.Fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *ContentCache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

func (c *ContentCache) read(ctx context.Context) Snapshot {
	var snap Snapshot
	snap.Posts, snap.postsErr = c.store.ListPublishedPosts(ctx)
	snap.Entries, snap.entriesErr = c.store.ListEntries(ctx)
	snap.Images, snap.imagesErr = c.store.ListPublishedImages(ctx)
	snap.Fetched = time.Now()
	return snap
}

// Snapshot returns the cached snapshot after ensuring it is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
// A partial read is returned with its error and is not cached.
func (c *ContentCache) Snapshot(ctx context.Context) (Snapshot, error) {
	c.mu.RLock()
	if c.valid() {
		snap := *c.snap
		c.mu.RUnlock()
		return snap, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return *c.snap, nil
	}
	snap := c.read(ctx)
	if err := snap.Err(); err != nil {
		return snap, err
	}
	c.snap = &snap
	for _, fn := range c.onReload {
		fn(snap)
	}
	return snap, nil
}

// ListPublishedPosts returns cached published posts.
func (c *ContentCache) ListPublishedPosts(ctx context.Context) ([]content.Post, error) {
	snap, _ := c.Snapshot(ctx)
	return snap.Posts, snap.postsErr
}

// ListEntries returns the cached content index.
func (c *ContentCache) ListEntries(ctx context.Context) ([]content.Entry, error) {
	snap, _ := c.Snapshot(ctx)
	return snap.Entries, snap.entriesErr
}

// ListPublishedImages returns cached published gallery images.
func (c *ContentCache) ListPublishedImages(ctx context.Context) ([]content.GalleryImage, error) {
	snap, _ := c.Snapshot(ctx)
	return snap.Images, snap.imagesErr
}

// GetPost returns a single published post by slug from the cache.
func (c *ContentCache) GetPost(ctx context.Context, slug string) (content.Post, error) {
	posts, err := c.ListPublishedPosts(ctx)
	if err != nil {
		return content.Post{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return content.Post{}, ErrNotFound
}
