// Package sitemap builds the crawler-facing XML documents: the URL sitemap,
// the image sitemap, the sitemap index and the error document served when
// any of them cannot be produced.
package sitemap

import (
	"encoding/xml"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/saunasite/content"
	"github.com/eringen/saunasite/slug"
)

const (
	NS         = "http://www.sitemaps.org/schemas/sitemap/0.9"
	ImageNS    = "http://www.google.com/schemas/sitemap-image/1.1"
	DateLayout = "2006-01-02"
)

// ChangeFreq is the sitemap protocol change frequency hint.
type ChangeFreq string

const (
	Always  ChangeFreq = "always"
	Hourly  ChangeFreq = "hourly"
	Daily   ChangeFreq = "daily"
	Weekly  ChangeFreq = "weekly"
	Monthly ChangeFreq = "monthly"
	Yearly  ChangeFreq = "yearly"
	Never   ChangeFreq = "never"
)

// Blog posts share one priority band.
const (
	PostPriority   = 0.6
	PostChangeFreq = Weekly
)

// StaticPage is one hand-curated sitemap record.
type StaticPage struct {
	Path       string     `yaml:"path"`
	ChangeFreq ChangeFreq `yaml:"changefreq"`
	Priority   float64    `yaml:"priority"`
}

// StaticPages is the default table of marketing pages.
var StaticPages = []StaticPage{
	{Path: "/", ChangeFreq: Weekly, Priority: 1.0},
	{Path: "/services", ChangeFreq: Monthly, Priority: 0.9},
	{Path: "/services/outdoor-saunas", ChangeFreq: Monthly, Priority: 0.9},
	{Path: "/services/indoor-saunas", ChangeFreq: Monthly, Priority: 0.9},
	{Path: "/services/sauna-installation", ChangeFreq: Monthly, Priority: 0.9},
	{Path: "/services/sauna-repair", ChangeFreq: Monthly, Priority: 0.8},
	{Path: "/health-benefits", ChangeFreq: Monthly, Priority: 0.8},
	{Path: "/cost-calculator", ChangeFreq: Monthly, Priority: 0.8},
	{Path: "/gallery", ChangeFreq: Weekly, Priority: 0.7},
	{Path: "/blog", ChangeFreq: Daily, Priority: 0.8},
	{Path: "/about", ChangeFreq: Yearly, Priority: 0.5},
	{Path: "/faq", ChangeFreq: Monthly, Priority: 0.6},
	{Path: "/contact", ChangeFreq: Yearly, Priority: 0.7},
}

// URLSet is the <urlset> document of sitemap.xml.
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// URL is one page entry of a URLSet.
type URL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
}

// ImageURLSet is the <urlset> document of sitemap-images.xml.
type ImageURLSet struct {
	XMLName    xml.Name   `xml:"urlset"`
	XMLNS      string     `xml:"xmlns,attr"`
	XMLNSImage string     `xml:"xmlns:image,attr"`
	URLs       []ImageURL `xml:"url"`
}

// ImageURL is one gallery page with the images it shows.
type ImageURL struct {
	Loc    string  `xml:"loc"`
	Images []Image `xml:"image:image"`
}

// Image is an <image:image> element.
type Image struct {
	Loc     string `xml:"image:loc"`
	Title   string `xml:"image:title"`
	Caption string `xml:"image:caption,omitempty"`
}

// Index is the <sitemapindex> document listing the other sitemaps.
type Index struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	XMLNS    string       `xml:"xmlns,attr"`
	Sitemaps []IndexEntry `xml:"sitemap"`
}

// IndexEntry points at one child sitemap.
type IndexEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// ErrorDoc is the body served instead of a sitemap when generation fails.
type ErrorDoc struct {
	XMLName xml.Name `xml:"error"`
	Message string   `xml:",chardata"`
}

// Abs joins a site base URL and a site-relative path. Absolute inputs are
// returned unchanged.
func Abs(base, p string) string {
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	base = strings.TrimRight(base, "/")
	if p == "" || p == "/" {
		return base + "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return base + p
}

// FormatPriority renders p with one decimal place, clamped to [0,1].
func FormatPriority(p float64) string {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return strconv.FormatFloat(p, 'f', 1, 64)
}

// PostLastMod picks updatedAt, then publishedAt, then today.
func PostLastMod(p content.Post, now time.Time) string {
	switch {
	case p.UpdatedAt != nil && !p.UpdatedAt.IsZero():
		return p.UpdatedAt.UTC().Format(DateLayout)
	case p.PublishedAt != nil && !p.PublishedAt.IsZero():
		return p.PublishedAt.UTC().Format(DateLayout)
	default:
		return now.UTC().Format(DateLayout)
	}
}

// BuildURLSet merges the static table with one record per published post.
// Posts with an empty slug are skipped.
func BuildURLSet(base string, static []StaticPage, posts []content.Post, now time.Time) URLSet {
	today := now.UTC().Format(DateLayout)
	set := URLSet{XMLNS: NS, URLs: make([]URL, 0, len(static)+len(posts))}
	for _, sp := range static {
		set.URLs = append(set.URLs, URL{
			Loc:        Abs(base, sp.Path),
			LastMod:    today,
			ChangeFreq: sp.ChangeFreq,
			Priority:   FormatPriority(sp.Priority),
		})
	}
	for _, p := range posts {
		if strings.TrimSpace(p.Slug) == "" {
			continue
		}
		set.URLs = append(set.URLs, URL{
			Loc:        Abs(base, "/blog/"+url.PathEscape(p.Slug)),
			LastMod:    PostLastMod(p, now),
			ChangeFreq: PostChangeFreq,
			Priority:   FormatPriority(PostPriority),
		})
	}
	return set
}

// BuildImageSet groups published images by category, in order of first
// appearance after sorting by OrderIndex, and appends an aggregate
// /gallery entry holding every image. Images without a URL are skipped.
// Uncategorized images only appear in the aggregate.
func BuildImageSet(base string, images []content.GalleryImage) ImageURLSet {
	published := make([]content.GalleryImage, 0, len(images))
	for _, img := range images {
		if img.IsPublished && strings.TrimSpace(img.ImageURL) != "" {
			published = append(published, img)
		}
	}
	sort.SliceStable(published, func(i, j int) bool {
		return published[i].OrderIndex < published[j].OrderIndex
	})

	var order []string
	groups := make(map[string][]Image)
	all := make([]Image, 0, len(published))
	for _, img := range published {
		entry := imageEntry(base, img)
		all = append(all, entry)
		cat := strings.TrimSpace(img.Category)
		if cat == "" {
			continue
		}
		if _, ok := groups[cat]; !ok {
			order = append(order, cat)
		}
		groups[cat] = append(groups[cat], entry)
	}

	set := ImageURLSet{XMLNS: NS, XMLNSImage: ImageNS, URLs: make([]ImageURL, 0, len(order)+1)}
	for _, cat := range order {
		set.URLs = append(set.URLs, ImageURL{
			Loc:    Abs(base, "/gallery?category="+url.QueryEscape(cat)),
			Images: groups[cat],
		})
	}
	set.URLs = append(set.URLs, ImageURL{Loc: Abs(base, "/gallery"), Images: all})
	return set
}

func imageEntry(base string, img content.GalleryImage) Image {
	return Image{
		Loc:     Abs(base, img.ImageURL),
		Title:   slug.Title(img.Title, img.AltText, img.ImageURL),
		Caption: strings.TrimSpace(img.Description),
	}
}

// BuildIndex points at the URL and image sitemaps, stamped with now.
func BuildIndex(base string, now time.Time) Index {
	date := now.UTC().Format(DateLayout)
	return Index{
		XMLNS: NS,
		Sitemaps: []IndexEntry{
			{Loc: Abs(base, "/sitemap.xml"), LastMod: date},
			{Loc: Abs(base, "/sitemap-images.xml"), LastMod: date},
		},
	}
}

// Encode writes the XML declaration followed by v, indented.
func Encode(w io.Writer, v any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// EncodeError writes an <error> document carrying msg.
func EncodeError(w io.Writer, msg string) error {
	return Encode(w, ErrorDoc{Message: msg})
}
