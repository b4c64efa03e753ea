package saunasite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/saunasite/logger"
	"github.com/eringen/saunasite/sitemap"
)

func (a *App) readContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), a.Config.ReadTimeout)
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx, cancel := a.readContext(c)
	defer cancel()
	set, err := a.Sitemaps.URLSet(ctx)
	a.metrics.sitemapServed("urls", err)
	if err != nil {
		return a.sitemapError(c, "sitemap", err)
	}
	return writeXML(c, http.StatusOK, set)
}

func (a *App) handleImageSitemap(c echo.Context) error {
	ctx, cancel := a.readContext(c)
	defer cancel()
	set, err := a.Sitemaps.ImageSet(ctx)
	a.metrics.sitemapServed("images", err)
	if err != nil {
		return a.sitemapError(c, "image sitemap", err)
	}
	return writeXML(c, http.StatusOK, set)
}

func (a *App) handleSitemapIndex(c echo.Context) error {
	a.metrics.sitemapServed("index", nil)
	return writeXML(c, http.StatusOK, a.Sitemaps.Index())
}

// sitemapError logs err and answers with an <error> document. Crawlers get
// an explicit failure instead of an empty or truncated sitemap.
func (a *App) sitemapError(c echo.Context, doc string, err error) error {
	a.Log.Error("sitemap generation failed", logger.String("document", doc), logger.Error(err))
	msg := fmt.Sprintf("failed to generate %s", doc)
	if errors.Is(err, context.DeadlineExceeded) {
		msg = fmt.Sprintf("timed out generating %s", doc)
	}
	return writeXMLError(c, http.StatusInternalServerError, msg)
}

func writeXML(c echo.Context, code int, v any) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(code)
	return sitemap.Encode(c.Response(), v)
}

func writeXMLError(c echo.Context, code int, msg string) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(code)
	return sitemap.EncodeError(c.Response(), msg)
}

func (a *App) handleFeed(c echo.Context) error {
	ctx, cancel := a.readContext(c)
	defer cancel()
	posts, err := a.Cache.ListPublishedPosts(ctx)
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

// RobotsTxt returns the robots.txt body pointing crawlers at the index.
func RobotsTxt(cfg SiteConfig) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /admin/\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("\n")
	b.WriteString("Sitemap: " + sitemap.Abs(cfg.URL, "/sitemap-index.xml") + "\n")
	return b.String()
}

func (a *App) handleRobots(c echo.Context) error {
	return c.String(http.StatusOK, RobotsTxt(a.Config))
}

func (a *App) handleHealthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), a.Config.ReadTimeout)
	defer cancel()
	if err := a.Store.Ping(ctx); err != nil {
		a.Log.Warn("health check failed", logger.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleBusinessJSONLD(c echo.Context) error {
	return c.Blob(http.StatusOK, "application/ld+json", []byte(LocalBusinessJSONLD(a.Config)))
}

func (a *App) handlePostJSONLD(c echo.Context) error {
	ctx, cancel := a.readContext(c)
	defer cancel()
	post, err := a.Cache.GetPost(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		return err
	}
	return c.Blob(http.StatusOK, "application/ld+json", []byte(BlogPostingJSONLD(post, a.Config)))
}
