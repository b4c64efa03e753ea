package saunasite

import (
	"bytes"
	"context"
	"fmt"

	"github.com/eringen/saunasite/logger"
	"github.com/eringen/saunasite/sitemap"
	"github.com/eringen/saunasite/storage"
)

// PublishedFile is one crawler document written by PublishSitemaps.
type PublishedFile struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// PublishSitemaps renders the URL sitemap, image sitemap, sitemap index and
// robots.txt and writes them to dst. Nothing is written unless every
// document renders.
func (a *App) PublishSitemaps(ctx context.Context, dst storage.Backend) ([]PublishedFile, error) {
	urls, err := a.Sitemaps.URLSet(ctx)
	if err != nil {
		return nil, err
	}
	images, err := a.Sitemaps.ImageSet(ctx)
	if err != nil {
		return nil, err
	}

	docs := []struct {
		key string
		v   any
	}{
		{"sitemap.xml", urls},
		{"sitemap-images.xml", images},
		{"sitemap-index.xml", a.Sitemaps.Index()},
	}
	bodies := make(map[string][]byte, len(docs)+1)
	for _, d := range docs {
		var buf bytes.Buffer
		if err := sitemap.Encode(&buf, d.v); err != nil {
			return nil, fmt.Errorf("encode %s: %w", d.key, err)
		}
		bodies[d.key] = buf.Bytes()
	}
	bodies["robots.txt"] = []byte(RobotsTxt(a.Config))

	out := make([]PublishedFile, 0, len(bodies))
	for _, key := range []string{"sitemap.xml", "sitemap-images.xml", "sitemap-index.xml", "robots.txt"} {
		u, err := dst.Put(ctx, key, bodies[key], storage.ContentTypeFor(key))
		if err != nil {
			return out, fmt.Errorf("publish %s: %w", key, err)
		}
		out = append(out, PublishedFile{Key: key, URL: u})
	}
	a.Log.Info("sitemaps published", logger.Int("files", len(out)),
		logger.Int("urls", len(urls.URLs)), logger.Int("image_pages", len(images.URLs)))
	return out, nil
}
