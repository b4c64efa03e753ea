package saunasite

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/saunasite/content"
	"github.com/eringen/saunasite/logger"
	"github.com/eringen/saunasite/markdown"
)

type rssXML struct {
	XMLName      xml.Name   `xml:"rss"`
	Version      string     `xml:"version,attr"`
	XMLNSContent string     `xml:"xmlns:content,attr"`
	Channel      rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string     `xml:"title"`
	Link        string     `xml:"link"`
	Description string     `xml:"description"`
	Content     *cdataText `xml:"content:encoded,omitempty"`
	PubDate     string     `xml:"pubDate,omitempty"`
	GUID        string     `xml:"guid"`
	Categories  []string   `xml:"category"`
}

type cdataText struct {
	Text string `xml:",cdata"`
}

// buildFeed builds the RSS document for posts. Post bodies are rendered from
// Markdown into content:encoded; a post that fails to render keeps only
// its excerpt.
func buildFeed(cfg SiteConfig, posts []content.Post, log logger.Logger) rssXML {
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		if p.Slug == "" {
			continue
		}
		postURL := BuildURL(cfg.URL, "blog", p.Slug)
		item := rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: p.Excerpt,
			GUID:        postURL,
			Categories:  p.Tags,
		}
		if p.PublishedAt != nil {
			item.PubDate = p.PublishedAt.UTC().Format(time.RFC1123Z)
		}
		if p.Content != "" {
			html, err := markdown.ToHTML(p.Content)
			if err != nil {
				if log != nil {
					log.Warn("feed: render post body", logger.String("slug", p.Slug), logger.Error(err))
				}
			} else {
				item.Content = &cdataText{Text: html}
			}
		}
		items = append(items, item)
	}
	return rssXML{
		Version:      "2.0",
		XMLNSContent: "http://purl.org/rss/1.0/modules/content/",
		Channel: rssChannel{
			Title:       cfg.Name,
			Link:        BuildURL(cfg.URL),
			Description: cfg.Description,
			Items:       items,
		},
	}
}

func (a *App) renderRSS(c echo.Context, posts []content.Post) error {
	feed := buildFeed(a.Config, posts, a.Log)
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(feed)
}
