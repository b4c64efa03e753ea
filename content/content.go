// Package content defines the records shared by the site's SEO tooling: the
// content index, the gallery catalog and blog posts.
package content

import (
	"context"
	"strings"
	"time"
)

// PageType classifies an entry in the content index.
type PageType string

const (
	PageTypeService       PageType = "service"
	PageTypeHealthBenefit PageType = "health-benefit"
	PageTypeBlog          PageType = "blog"
	PageTypePage          PageType = "page"
)

// Valid reports whether t is one of the known page types.
func (t PageType) Valid() bool {
	switch t {
	case PageTypeService, PageTypeHealthBenefit, PageTypeBlog, PageTypePage:
		return true
	}
	return false
}

// ParsePageType normalizes s into a PageType. Unknown values yield "".
func ParsePageType(s string) PageType {
	t := PageType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return ""
	}
	return t
}

// Entry is one discoverable URL on the site.
type Entry struct {
	URL            string    `json:"url" yaml:"url"`
	Title          string    `json:"title" yaml:"title"`
	PageType       PageType  `json:"pageType" yaml:"pageType"`
	Excerpt        string    `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	MainKeywords   []string  `json:"mainKeywords,omitempty" yaml:"mainKeywords,omitempty"`
	ContentSummary *string   `json:"contentSummary,omitempty" yaml:"contentSummary,omitempty"`
	RelatedPages   []string  `json:"relatedPages,omitempty" yaml:"relatedPages,omitempty"`
	LastModifiedAt time.Time `json:"lastModifiedAt,omitzero" yaml:"lastModifiedAt,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
}

// LastTouched returns LastModifiedAt, or CreatedAt when the former is unset.
func (e Entry) LastTouched() time.Time {
	if !e.LastModifiedAt.IsZero() {
		return e.LastModifiedAt
	}
	return e.CreatedAt
}

// GalleryImage is one publishable image asset.
type GalleryImage struct {
	ID          string `json:"id" yaml:"id,omitempty"`
	ImageURL    string `json:"imageUrl" yaml:"imageUrl"`
	Title       string `json:"title" yaml:"title,omitempty"`
	AltText     string `json:"altText" yaml:"altText,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string `json:"category" yaml:"category"`
	IsPublished bool   `json:"isPublished" yaml:"isPublished"`
	OrderIndex  int    `json:"orderIndex" yaml:"orderIndex"`
}

// Post is a blog post. Published posts are added to the URL sitemap and
// the RSS feed.
type Post struct {
	Slug        string     `json:"slug" yaml:"slug"`
	Title       string     `json:"title" yaml:"title"`
	Excerpt     string     `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	Content     string     `json:"content" yaml:"content,omitempty"`
	Tags        []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Published   bool       `json:"published" yaml:"published"`
	PublishedAt *time.Time `json:"publishedAt,omitempty" yaml:"publishedAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// Link returns the site-relative path of the post.
func (p Post) Link() string {
	return "/blog/" + p.Slug
}

// IndexSource reads the content index.
type IndexSource interface {
	ListEntries(ctx context.Context) ([]Entry, error)
}

// GallerySource reads published gallery images ordered by OrderIndex.
type GallerySource interface {
	ListPublishedImages(ctx context.Context) ([]GalleryImage, error)
}

// PostSource reads published blog posts.
type PostSource interface {
	ListPublishedPosts(ctx context.Context) ([]Post, error)
}
