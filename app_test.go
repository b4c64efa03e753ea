package saunasite

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eringen/saunasite/content"
	"github.com/eringen/saunasite/search"
	"github.com/eringen/saunasite/seo"
	"github.com/eringen/saunasite/storage"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := SiteConfig{
		Name:          "Sauna Co",
		URL:           "https://saunaco.example/",
		Description:   "Outdoor and indoor saunas",
		DatabaseDSN:   filepath.Join(dir, "site.db"),
		AdminPassword: "correct horse",
		SessionSecret: "test-session-secret-0123456789abcdef",
		UploadDir:     filepath.Join(dir, "public"),
		UploadURL:     "/public",
	}
	base := []Option{WithClock(func() time.Time { return testNow }), WithStaticDir(filepath.Join(dir, "public"))}
	a := New(cfg, append(base, opts...)...)
	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func seedContent(t *testing.T, a *App) {
	t.Helper()
	ctx := context.Background()
	published := time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)
	posts := []content.Post{
		{Slug: "first-loyly", Title: "Your First Löyly", Excerpt: "Steam basics", Content: "Throw **water** on the stones.",
			Tags: []string{"beginners"}, Published: true, PublishedAt: &published},
		{Slug: "draft-post", Title: "Draft", Published: false},
	}
	for _, p := range posts {
		if err := a.Store.SavePost(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	summary := "Cedar barrel saunas for gardens"
	entries := []content.Entry{
		{URL: "/services/outdoor-saunas", Title: "Outdoor Saunas", PageType: content.PageTypeService,
			MainKeywords: []string{"outdoor", "barrel"}, ContentSummary: &summary,
			RelatedPages: []string{"/contact"}, LastModifiedAt: testNow.AddDate(0, -1, 0)},
		{URL: "/health-benefits/sleep", Title: "Sauna and Sleep", PageType: content.PageTypeHealthBenefit,
			LastModifiedAt: testNow.AddDate(-1, 0, 0)},
		{URL: "/contact", Title: "Contact", PageType: content.PageTypePage, CreatedAt: testNow},
	}
	for _, e := range entries {
		if err := a.Store.SaveEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	images := []content.GalleryImage{
		{ID: "img-1", ImageURL: "/public/uploads/barrel.jpg", Title: "Barrel sauna", Category: "Outdoor", IsPublished: true, OrderIndex: 1},
		{ID: "img-2", ImageURL: "/public/uploads/bench.jpg", AltText: "Cedar bench", Category: "Indoor", IsPublished: true, OrderIndex: 0},
		{ID: "img-3", ImageURL: "/public/uploads/hidden.jpg", Category: "Outdoor", IsPublished: false, OrderIndex: 2},
	}
	for _, img := range images {
		if err := a.Store.SaveImage(ctx, img); err != nil {
			t.Fatal(err)
		}
	}
	a.Cache.Invalidate()
}

// testClient replays cookies and the CSRF token between requests.
type testClient struct {
	t       *testing.T
	a       *App
	cookies map[string]*http.Cookie
	csrf    string
}

func newTestClient(t *testing.T, a *App) *testClient {
	return &testClient{t: t, a: a, cookies: map[string]*http.Cookie{}}
}

func (c *testClient) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.a.Echo.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *testClient) json(method, target string, v any) *httptest.ResponseRecorder {
	c.t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			c.t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}
	return c.do(method, target, body, "application/json")
}

func (c *testClient) fetchCSRF() sessionState {
	c.t.Helper()
	rec := c.do(http.MethodGet, "/admin/api/session", nil, "")
	if rec.Code != http.StatusOK {
		c.t.Fatalf("session status = %d", rec.Code)
	}
	var st sessionState
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		c.t.Fatal(err)
	}
	if st.CSRFToken == "" {
		c.t.Fatal("empty csrf token")
	}
	c.csrf = st.CSRFToken
	return st
}

func (c *testClient) login(password string) *httptest.ResponseRecorder {
	c.t.Helper()
	if c.csrf == "" {
		c.fetchCSRF()
	}
	return c.json(http.MethodPost, "/admin/api/login", loginRequest{Password: password})
}

func adminClient(t *testing.T, a *App) *testClient {
	t.Helper()
	c := newTestClient(t, a)
	if rec := c.login("correct horse"); rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	return c
}

func get(a *App, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

type locs struct {
	URLs []struct {
		Loc     string `xml:"loc"`
		LastMod string `xml:"lastmod"`
	} `xml:"url"`
}

func TestInitRequiresSecrets(t *testing.T) {
	a := New(SiteConfig{DatabaseDSN: filepath.Join(t.TempDir(), "x.db")})
	if err := a.Init(context.Background()); err == nil {
		t.Fatal("expected error without admin password")
	}
	a = New(SiteConfig{AdminPassword: "x", DatabaseDSN: filepath.Join(t.TempDir(), "x.db")})
	if err := a.Init(context.Background()); err == nil {
		t.Fatal("expected error without session secret")
	}
}

func TestSitemapEndpoint(t *testing.T) {
	a := newTestApp(t)
	seedContent(t, a)

	rec := get(a, "/sitemap.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/xml; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", cc)
	}
	var set locs
	if err := xml.Unmarshal(rec.Body.Bytes(), &set); err != nil {
		t.Fatalf("sitemap is not well-formed: %v", err)
	}
	// Static table plus the one published post.
	if want := len(a.staticPages) + 1; len(set.URLs) != want {
		t.Fatalf("urls = %d, want %d", len(set.URLs), want)
	}
	if set.URLs[0].Loc != "https://saunaco.example/" || set.URLs[0].LastMod != "2025-06-01" {
		t.Errorf("home = %+v", set.URLs[0])
	}
	last := set.URLs[len(set.URLs)-1]
	if last.Loc != "https://saunaco.example/blog/first-loyly" || last.LastMod != "2025-05-20" {
		t.Errorf("post = %+v", last)
	}
	if strings.Contains(rec.Body.String(), "draft-post") {
		t.Error("draft post leaked into sitemap")
	}
}

func TestImageSitemapEndpoint(t *testing.T) {
	a := newTestApp(t)
	seedContent(t, a)

	rec := get(a, "/sitemap-images.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`xmlns:image="http://www.google.com/schemas/sitemap-image/1.1"`,
		"<loc>https://saunaco.example/gallery?category=Indoor</loc>",
		"<loc>https://saunaco.example/gallery?category=Outdoor</loc>",
		"<image:loc>https://saunaco.example/public/uploads/bench.jpg</image:loc>",
		"<image:title>Cedar bench</image:title>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("image sitemap missing %s", want)
		}
	}
	if strings.Contains(body, "hidden.jpg") {
		t.Error("unpublished image leaked into sitemap")
	}
	// Indoor sorts first by order index; the aggregate gallery comes last.
	if strings.Index(body, "category=Indoor") > strings.Index(body, "category=Outdoor") {
		t.Error("category groups out of order")
	}
	if strings.LastIndex(body, "<loc>https://saunaco.example/gallery</loc>") < strings.Index(body, "category=Outdoor") {
		t.Error("aggregate gallery entry should come last")
	}
}

func TestSitemapIndexAndRobots(t *testing.T) {
	a := newTestApp(t)

	rec := get(a, "/sitemap-index.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, want := range []string{
		"<loc>https://saunaco.example/sitemap.xml</loc>",
		"<loc>https://saunaco.example/sitemap-images.xml</loc>",
		"<lastmod>2025-06-01</lastmod>",
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("index missing %s", want)
		}
	}

	rec = get(a, "/robots.txt")
	if !strings.Contains(rec.Body.String(), "Sitemap: https://saunaco.example/sitemap-index.xml") {
		t.Errorf("robots.txt = %q", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Disallow: /admin/") {
		t.Error("robots.txt should disallow /admin/")
	}
}

func TestSitemapStoreFailure(t *testing.T) {
	a := newTestApp(t)
	a.Store.Close()

	for _, tc := range []struct{ path, msg string }{
		{"/sitemap.xml", "failed to generate sitemap"},
		{"/sitemap-images.xml", "failed to generate image sitemap"},
	} {
		rec := get(a, tc.path)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s status = %d, want 500", tc.path, rec.Code)
		}
		var doc struct {
			XMLName xml.Name `xml:"error"`
			Message string   `xml:",chardata"`
		}
		if err := xml.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
			t.Fatalf("%s: error body not XML: %v", tc.path, err)
		}
		if doc.Message != tc.msg {
			t.Errorf("%s message = %q, want %q", tc.path, doc.Message, tc.msg)
		}
	}

	if rec := get(a, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz status = %d, want 503", rec.Code)
	}
}

func TestSitemapSkipsMalformedEntry(t *testing.T) {
	a := newTestApp(t)
	seedContent(t, a)
	if _, err := a.Store.db.Exec(`UPDATE content_entries SET main_keywords = 'not json' WHERE url = '/contact'`); err != nil {
		t.Fatal(err)
	}
	a.Cache.Invalidate()

	for _, tc := range []struct {
		path string
		urls int
	}{
		{"/sitemap.xml", len(a.staticPages) + 1},
		{"/sitemap-images.xml", 3},
	} {
		rec := get(a, tc.path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d: %s", tc.path, rec.Code, rec.Body.String())
		}
		var got locs
		if err := xml.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if len(got.URLs) != tc.urls {
			t.Errorf("%s urls = %d, want %d", tc.path, len(got.URLs), tc.urls)
		}
	}

	entries, err := a.Cache.ListEntries(context.Background())
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("entries = %d, want the 2 readable ones", len(entries))
	}
}

type blockingPosts struct{}

func (blockingPosts) ListPublishedPosts(ctx context.Context) ([]content.Post, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSitemapReadTimeout(t *testing.T) {
	a := newTestApp(t)
	a.Config.ReadTimeout = 20 * time.Millisecond
	a.Sitemaps.Posts = blockingPosts{}

	rec := get(a, "/sitemap.xml")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<error>timed out generating sitemap</error>") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t)
	rec := get(a, "/healthz")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}
}

func TestFeedEndpoint(t *testing.T) {
	a := newTestApp(t)
	seedContent(t, a)

	rec := get(a, "/feed.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("Content-Type = %q", ct)
	}
	var feed rssXML
	if err := xml.Unmarshal(rec.Body.Bytes(), &feed); err != nil {
		t.Fatalf("feed not well-formed: %v", err)
	}
	if len(feed.Channel.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(feed.Channel.Items))
	}
	item := feed.Channel.Items[0]
	if item.Link != "https://saunaco.example/blog/first-loyly" || item.PubDate != "Tue, 20 May 2025 08:00:00 +0000" {
		t.Errorf("item = %+v", item)
	}
	if !strings.Contains(rec.Body.String(), "<![CDATA[") || !strings.Contains(rec.Body.String(), "<strong>water</strong>") {
		t.Error("rendered body missing from content:encoded")
	}
}

func TestStructuredData(t *testing.T) {
	a := newTestApp(t)
	seedContent(t, a)

	rec := get(a, "/api/structured-data")
	if ct := rec.Header().Get("Content-Type"); ct != "application/ld+json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var biz map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &biz); err != nil {
		t.Fatal(err)
	}
	if biz["@type"] != "LocalBusiness" || biz["url"] != "https://saunaco.example/" {
		t.Errorf("business = %v", biz)
	}

	rec = get(a, "/api/structured-data/blog/first-loyly")
	var post map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &post); err != nil {
		t.Fatal(err)
	}
	if post["headline"] != "Your First Löyly" || post["datePublished"] != "2025-05-20" {
		t.Errorf("posting = %v", post)
	}

	if rec := get(a, "/api/structured-data/blog/draft-post"); rec.Code != http.StatusNotFound {
		t.Errorf("draft JSON-LD status = %d, want 404", rec.Code)
	}
}

func TestAdminRequiresLogin(t *testing.T) {
	a := newTestApp(t)
	c := newTestClient(t, a)
	c.fetchCSRF()
	for _, path := range []string{"/admin/api/posts", "/admin/api/entries", "/admin/api/seo/health", "/admin/api/images"} {
		if rec := c.do(http.MethodGet, path, nil, ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s status = %d, want 401", path, rec.Code)
		}
	}
}

func TestAdminLoginCSRF(t *testing.T) {
	a := newTestApp(t)
	c := newTestClient(t, a)
	if rec := c.json(http.MethodPost, "/admin/api/login", loginRequest{Password: "correct horse"}); rec.Code != http.StatusForbidden {
		t.Errorf("login without csrf status = %d, want 403", rec.Code)
	}
}

func TestAdminLogin(t *testing.T) {
	a := newTestApp(t)
	c := newTestClient(t, a)
	if rec := c.login("wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", rec.Code)
	}
	if rec := c.login("correct horse"); rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	if st := c.fetchCSRF(); !st.Authenticated {
		t.Error("session should be authenticated")
	}
	if rec := c.json(http.MethodPost, "/admin/api/logout", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}
	if rec := c.do(http.MethodGet, "/admin/api/posts", nil, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout status = %d, want 401", rec.Code)
	}
}

func TestAdminLoginRateLimited(t *testing.T) {
	a := newTestApp(t)
	c := newTestClient(t, a)
	for i := 0; i < a.Config.LoginMaxAttempts; i++ {
		if rec := c.login("wrong"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d", i+1, rec.Code)
		}
	}
	if rec := c.login("correct horse"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestAdminPosts(t *testing.T) {
	a := newTestApp(t)
	seedContent(t, a)
	c := adminClient(t, a)

	// Prime the cache so the save must invalidate it.
	if rec := get(a, "/sitemap.xml"); rec.Code != http.StatusOK {
		t.Fatal(rec.Code)
	}

	rec := c.json(http.MethodPut, "/admin/api/posts/new", postRequest{
		Title:     "Choosing a Sauna Heater",
		Content:   "Wood or electric?",
		Tags:      []string{"Heaters", " "},
		Published: true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}
	var saved content.Post
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatal(err)
	}
	if saved.Slug != "choosing-a-sauna-heater" || saved.PublishedAt == nil {
		t.Errorf("saved = %+v", saved)
	}
	if !strings.Contains(get(a, "/sitemap.xml").Body.String(), "/blog/choosing-a-sauna-heater") {
		t.Error("sitemap should include the new post after save")
	}

	if rec := c.json(http.MethodPut, "/admin/api/posts/x", postRequest{}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty title status = %d, want 400", rec.Code)
	}
	if rec := c.do(http.MethodGet, "/admin/api/posts/draft-post", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("get draft status = %d", rec.Code)
	}
	rec = c.do(http.MethodGet, "/admin/api/posts", nil, "")
	var posts []content.Post
	if err := json.Unmarshal(rec.Body.Bytes(), &posts); err != nil {
		t.Fatal(err)
	}
	if len(posts) != 3 {
		t.Errorf("posts = %d, want 3", len(posts))
	}
	if rec := c.do(http.MethodDelete, "/admin/api/posts/first-loyly", nil, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := c.do(http.MethodDelete, "/admin/api/posts/first-loyly", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestAdminEntries(t *testing.T) {
	a := newTestApp(t)
	c := adminClient(t, a)

	rec := c.json(http.MethodPut, "/admin/api/entries", content.Entry{
		URL:          "/services/sauna-repair",
		Title:        "Sauna Repair",
		PageType:     "Service",
		MainKeywords: []string{"repair", ""},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}
	var e content.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if e.PageType != content.PageTypeService || len(e.MainKeywords) != 1 || !e.CreatedAt.Equal(testNow) {
		t.Errorf("entry = %+v", e)
	}

	for _, bad := range []content.Entry{
		{URL: "services/x", Title: "X", PageType: content.PageTypeService},
		{URL: "/x", Title: "X", PageType: "landing"},
		{URL: "/x", PageType: content.PageTypePage},
	} {
		if rec := c.json(http.MethodPut, "/admin/api/entries", bad); rec.Code != http.StatusBadRequest {
			t.Errorf("%+v status = %d, want 400", bad, rec.Code)
		}
	}

	if rec := c.do(http.MethodGet, "/admin/api/entries?url=/services/sauna-repair", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("get entry status = %d", rec.Code)
	}
	if rec := c.do(http.MethodDelete, "/admin/api/entries?url=/services/sauna-repair", nil, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := c.do(http.MethodGet, "/admin/api/entries?url=/services/sauna-repair", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", rec.Code)
	}
}

func TestAdminSEOTools(t *testing.T) {
	a := newTestApp(t)
	seedContent(t, a)
	c := adminClient(t, a)

	rec := c.do(http.MethodGet, "/admin/api/seo/suggestions?title=Outdoor+sauna+buying+guide&category=blog", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("suggestions status = %d", rec.Code)
	}
	var sugg seo.Suggestions
	if err := json.Unmarshal(rec.Body.Bytes(), &sugg); err != nil {
		t.Fatal(err)
	}
	if len(sugg.Services) != 1 || sugg.Services[0].URL != "/services/outdoor-saunas" || sugg.Contact.URL != "/contact" {
		t.Errorf("suggestions = %+v", sugg)
	}

	rec = c.json(http.MethodPost, "/admin/api/seo/audit", auditRequest{
		Content: "[a](/services/outdoor-saunas) [b](/contact) [c](https://saunaco.example/blog/first-loyly) [d](https://example.org/)",
	})
	var audit seo.Audit
	if err := json.Unmarshal(rec.Body.Bytes(), &audit); err != nil {
		t.Fatal(err)
	}
	if audit.Count != 3 || audit.Quality != seo.QualityFair || !audit.HasBlogLink {
		t.Errorf("audit = %+v", audit)
	}

	rec = c.do(http.MethodGet, "/admin/api/seo/health", nil, "")
	var report seo.HealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	// sleep: orphaned, stale, missing metadata. contact: orphaned, missing metadata.
	if report.TotalPages != 3 || report.OrphanedPages != 2 || report.StaleContent != 1 ||
		report.MissingMetadata != 2 || report.BrokenRelationships != 0 || report.TotalIssues != 5 {
		t.Errorf("report = %+v", report)
	}
	if !strings.Contains(get(a, "/metrics").Body.String(), "saunasite_content_health_issues 5") {
		t.Error("health gauge not exported")
	}

	rec = c.do(http.MethodGet, "/admin/api/search?q=barrel", nil, "")
	var hits []search.Hit
	if err := json.Unmarshal(rec.Body.Bytes(), &hits); err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || hits[0].URL != "/services/outdoor-saunas" {
		t.Errorf("hits = %+v", hits)
	}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, G: 120, B: 60, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uploadForm(t *testing.T, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func TestImageUploadLifecycle(t *testing.T) {
	a := newTestApp(t)
	c := adminClient(t, a)

	body, ct := uploadForm(t, "cedar-bench.png", testPNG(t, 2000, 100), map[string]string{
		"title": "Cedar bench", "category": "Indoor", "isPublished": "true",
	})
	rec := c.do(http.MethodPost, "/admin/api/images", body, ct)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var img content.GalleryImage
	if err := json.Unmarshal(rec.Body.Bytes(), &img); err != nil {
		t.Fatal(err)
	}
	if img.ID == "" || img.ImageURL != "/public/uploads/cedar-bench.jpg" || !img.IsPublished || img.OrderIndex != 0 {
		t.Errorf("image = %+v", img)
	}
	path := filepath.Join(a.Config.UploadDir, "uploads", "cedar-bench.jpg")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("upload not written: %v", err)
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil || cfg.Width != maxImageWidth {
		t.Errorf("stored width = %d (%v), want %d", cfg.Width, err, maxImageWidth)
	}

	body, ct = uploadForm(t, "cedar-bench.png", testPNG(t, 10, 10), nil)
	rec = c.do(http.MethodPost, "/admin/api/images", body, ct)
	var second content.GalleryImage
	json.Unmarshal(rec.Body.Bytes(), &second)
	if second.ImageURL != "/public/uploads/cedar-bench-2.jpg" || second.OrderIndex != 1 {
		t.Errorf("second upload = %+v", second)
	}

	if !strings.Contains(get(a, "/sitemap-images.xml").Body.String(), "cedar-bench.jpg") {
		t.Error("published upload missing from image sitemap")
	}

	rec = c.json(http.MethodPut, "/admin/api/images/"+img.ID, map[string]any{"altText": "Bench", "isPublished": false})
	var updated content.GalleryImage
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if rec.Code != http.StatusOK || updated.AltText != "Bench" || updated.IsPublished || updated.Title != "Cedar bench" {
		t.Errorf("update = %d %+v", rec.Code, updated)
	}

	if rec := c.do(http.MethodDelete, "/admin/api/images/"+img.ID, nil, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("upload file should be removed")
	}
	if rec := c.do(http.MethodDelete, "/admin/api/images/"+img.ID, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestImageUploadRejectsNonImage(t *testing.T) {
	a := newTestApp(t)
	c := adminClient(t, a)
	body, ct := uploadForm(t, "notes.txt", []byte("not an image"), nil)
	if rec := c.do(http.MethodPost, "/admin/api/images", body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPublishSitemaps(t *testing.T) {
	a := newTestApp(t)
	seedContent(t, a)
	dir := t.TempDir()
	dst, err := storage.New(storage.Config{BasePath: dir, PublicURL: "https://saunaco.example"})
	if err != nil {
		t.Fatal(err)
	}
	files, err := a.PublishSitemaps(context.Background(), dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 4 {
		t.Fatalf("files = %+v", files)
	}
	for _, name := range []string{"sitemap.xml", "sitemap-images.xml", "sitemap-index.xml", "robots.txt"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
	data, _ := os.ReadFile(filepath.Join(dir, "sitemap.xml"))
	if !bytes.Equal(data, []byte(get(a, "/sitemap.xml").Body.String())) {
		t.Error("published sitemap differs from served sitemap")
	}
}
