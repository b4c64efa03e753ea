// Package markdown extracts links from Markdown article bodies and renders
// Markdown to HTML for the feed.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var reLink = regexp.MustCompile(`(!?)\[([^\]]*)\]\(\s*([^)\s]+)(?:\s+"[^"]*")?\s*\)`)

// Link is one inline Markdown link.
type Link struct {
	Text   string
	Target string
}

// Links returns every inline [text](target) link in md, in document order.
// Image embeds (![alt](src)) are not links and are skipped.
func Links(md string) []Link {
	matches := reLink.FindAllStringSubmatch(md, -1)
	links := make([]Link, 0, len(matches))
	for _, m := range matches {
		if m[1] == "!" {
			continue
		}
		links = append(links, Link{
			Text:   strings.TrimSpace(m[2]),
			Target: strings.TrimSpace(m[3]),
		})
	}
	return links
}

var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// ToHTML renders md as HTML. Raw HTML in the source is dropped.
func ToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
