package sitemap

import (
	"context"
	"fmt"
	"time"

	"github.com/eringen/saunasite/content"
)

// Generator builds the sitemap documents from live content sources.
type Generator struct {
	BaseURL string
	Static  []StaticPage
	Posts   content.PostSource
	Gallery content.GallerySource
	Now     func() time.Time
}

// NewGenerator returns a Generator using the default static page table.
func NewGenerator(baseURL string, posts content.PostSource, gallery content.GallerySource) *Generator {
	return &Generator{
		BaseURL: baseURL,
		Static:  StaticPages,
		Posts:   posts,
		Gallery: gallery,
		Now:     time.Now,
	}
}

func (g *Generator) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

// URLSet reads published posts and builds the URL sitemap.
func (g *Generator) URLSet(ctx context.Context) (URLSet, error) {
	posts, err := g.Posts.ListPublishedPosts(ctx)
	if err != nil {
		return URLSet{}, fmt.Errorf("list published posts: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return URLSet{}, err
	}
	return BuildURLSet(g.BaseURL, g.Static, posts, g.now()), nil
}

// ImageSet reads published gallery images and builds the image sitemap.
func (g *Generator) ImageSet(ctx context.Context) (ImageURLSet, error) {
	images, err := g.Gallery.ListPublishedImages(ctx)
	if err != nil {
		return ImageURLSet{}, fmt.Errorf("list published images: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return ImageURLSet{}, err
	}
	return BuildImageSet(g.BaseURL, images), nil
}

// Index builds the sitemap index. It never fails.
func (g *Generator) Index() Index {
	return BuildIndex(g.BaseURL, g.now())
}
