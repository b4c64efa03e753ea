package seo

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/eringen/saunasite/markdown"
)

// Quality is the advisory link-density band of an article.
type Quality string

const (
	QualityPoor      Quality = "poor"
	QualityFair      Quality = "fair"
	QualityGood      Quality = "good"
	QualityExcessive Quality = "excessive"
)

// Target density band for internal links per article.
const (
	GoodMin = 6
	GoodMax = 8
	FairMin = 3
)

// Audit summarizes the internal links already present in an article.
type Audit struct {
	Count          int     `json:"count"`
	Quality        Quality `json:"quality"`
	HasContactLink bool    `json:"hasContactLink"`
	HasServiceLink bool    `json:"hasServiceLink"`
	HasHealthLink  bool    `json:"hasHealthLink"`
	HasBlogLink    bool    `json:"hasBlogLink"`
}

// Band maps an internal link count to its quality band.
func Band(count int) Quality {
	switch {
	case count > GoodMax:
		return QualityExcessive
	case count >= GoodMin:
		return QualityGood
	case count >= FairMin:
		return QualityFair
	default:
		return QualityPoor
	}
}

// Auditor classifies links in article bodies. SiteHostname identifies
// absolute links that point back at this site.
type Auditor struct {
	SiteHostname string
}

// NewAuditor returns an Auditor for the given site hostname.
func NewAuditor(siteHostname string) *Auditor {
	return &Auditor{SiteHostname: siteHostname}
}

// Audit counts internal links in body and flags which link categories are
// present. External links are ignored.
func (a *Auditor) Audit(body string) Audit {
	var res Audit
	for _, target := range linkTargets(body) {
		if !a.IsInternal(target) {
			continue
		}
		res.Count++
		if strings.Contains(target, "/contact") {
			res.HasContactLink = true
		}
		if strings.Contains(target, "/services/") {
			res.HasServiceLink = true
		}
		if strings.Contains(target, "/health-benefits/") {
			res.HasHealthLink = true
		}
		if strings.Contains(target, "/blog/") {
			res.HasBlogLink = true
		}
	}
	res.Quality = Band(res.Count)
	return res
}

// IsInternal reports whether target is site-relative or points at the
// configured hostname.
func (a *Auditor) IsInternal(target string) bool {
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return true
	}
	if a.SiteHostname == "" {
		return false
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return false
	}
	return sameHost(u.Hostname(), a.SiteHostname)
}

func sameHost(a, b string) bool {
	norm := func(h string) string {
		return strings.TrimPrefix(strings.ToLower(h), "www.")
	}
	return norm(a) == norm(b)
}

// linkTargets returns Markdown link targets followed by the href of any raw
// HTML anchors pasted into the body.
func linkTargets(body string) []string {
	var targets []string
	for _, l := range markdown.Links(body) {
		targets = append(targets, l.Target)
	}
	if strings.Contains(strings.ToLower(body), "<a") {
		targets = append(targets, anchorHrefs(body)...)
	}
	return targets
}

func anchorHrefs(body string) []string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}
	var hrefs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && strings.TrimSpace(attr.Val) != "" {
					hrefs = append(hrefs, strings.TrimSpace(attr.Val))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hrefs
}
