package saunasite

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/eringen/saunasite/content"
)

// BuildURL joins a base URL with path segments. The base alone keeps a
// trailing slash; joined paths do not.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	if len(pathSegments) == 0 {
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		return u.String()
	}
	u.Path = path.Join("/", u.Path, path.Join(pathSegments...))
	return u.String()
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LocalBusinessJSONLD returns a JSON-LD string for the business using
// SiteConfig. Empty fields are omitted.
func LocalBusinessJSONLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "LocalBusiness",
		"@id":      BuildURL(cfg.URL) + "#business",
		"name":     cfg.Name,
		"url":      BuildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	if cfg.Phone != "" {
		data["telephone"] = cfg.Phone
	}
	if cfg.Email != "" {
		data["email"] = cfg.Email
	}
	if cfg.PriceRange != "" {
		data["priceRange"] = cfg.PriceRange
	}
	addr := map[string]string{}
	for k, v := range map[string]string{
		"streetAddress":   cfg.Street,
		"addressLocality": cfg.Locality,
		"addressRegion":   cfg.Region,
		"postalCode":      cfg.PostalCode,
		"addressCountry":  cfg.Country,
	} {
		if v != "" {
			addr[k] = v
		}
	}
	if len(addr) > 0 {
		addr["@type"] = "PostalAddress"
		data["address"] = addr
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BlogPostingJSONLD returns a JSON-LD string for a BlogPosting schema.
func BlogPostingJSONLD(post content.Post, cfg SiteConfig) string {
	postURL := BuildURL(cfg.URL, "blog", post.Slug)
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "BlogPosting",
		"headline":    post.Title,
		"description": post.Excerpt,
		"url":         postURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if post.PublishedAt != nil {
		data["datePublished"] = post.PublishedAt.UTC().Format("2006-01-02")
	}
	if post.UpdatedAt != nil {
		data["dateModified"] = post.UpdatedAt.UTC().Format("2006-01-02")
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		}
	}
	if len(post.Tags) > 0 {
		data["keywords"] = strings.Join(post.Tags, ", ")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
