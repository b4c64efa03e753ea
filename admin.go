package saunasite

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/saunasite/content"
	"github.com/eringen/saunasite/logger"
	"github.com/eringen/saunasite/slug"
)

type loginRequest struct {
	Password string `json:"password" form:"password"`
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ctx := c.Request().Context()
	ip := c.RealIP()
	if !a.loginLimiter.Check(ctx, ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid login request")
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.Config.AdminPassword)) != 1 {
		a.loginLimiter.Record(ctx, ip)
		a.Log.Warn("admin login failed", logger.String("ip", ip))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid password")
	}
	if err := setAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionState{Authenticated: true, CSRFToken: CsrfToken(c)})
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type sessionState struct {
	Authenticated bool   `json:"authenticated"`
	CSRFToken     string `json:"csrfToken"`
}

// handleAdminSession reports the login state and hands out the CSRF token
// the admin client must echo back on unsafe requests.
func handleAdminSession(c echo.Context) error {
	return c.JSON(http.StatusOK, sessionState{Authenticated: IsAdmin(c), CSRFToken: CsrfToken(c)})
}

func (a *App) handleAdminPosts(c echo.Context) error {
	posts, err := a.Store.ListAllPosts(c.Request().Context())
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []content.Post{}
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleAdminPost(c echo.Context) error {
	post, err := a.Store.GetPostAny(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, post)
}

type postRequest struct {
	Title       string   `json:"title"`
	Excerpt     string   `json:"excerpt"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	Published   bool     `json:"published"`
	PublishedAt string   `json:"publishedAt"`
}

// handleAdminSavePost creates or replaces the post at :slug. The slug is
// normalized; "new" derives it from the title.
func (a *App) handleAdminSavePost(c echo.Context) error {
	var req postRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid post")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	name := slug.Make(c.Param("slug"))
	if name == "" || name == "new" {
		name = slug.Make(title)
	}
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "slug is required, add a title or slug")
	}

	ctx := c.Request().Context()
	now := a.now().UTC()
	post := content.Post{
		Slug:      name,
		Title:     title,
		Excerpt:   strings.TrimSpace(req.Excerpt),
		Content:   req.Content,
		Tags:      FilterEmpty(req.Tags),
		Published: req.Published,
		UpdatedAt: &now,
	}
	if req.PublishedAt != "" {
		t := parseTimePtr(req.PublishedAt)
		if t == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid publishedAt, use YYYY-MM-DD or RFC 3339")
		}
		post.PublishedAt = t
	} else if prev, err := a.Store.GetPostAny(ctx, name); err == nil {
		post.PublishedAt = prev.PublishedAt
	}
	if post.Published && post.PublishedAt == nil {
		published := now.Truncate(time.Second)
		post.PublishedAt = &published
	}

	if err := a.Store.SavePost(ctx, post); err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Log.Info("post saved", logger.String("slug", name), logger.Bool("published", post.Published))
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleAdminDeletePost(c echo.Context) error {
	if err := a.Store.DeletePost(c.Request().Context(), c.Param("slug")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

// handleAdminEntries lists the content index, or returns one entry when
// the url query parameter is set.
func (a *App) handleAdminEntries(c echo.Context) error {
	ctx := c.Request().Context()
	if u := c.QueryParam("url"); u != "" {
		entry, err := a.Store.GetEntry(ctx, u)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "entry not found")
			}
			return err
		}
		return c.JSON(http.StatusOK, entry)
	}
	entries, err := a.Store.ListEntries(ctx)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []content.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

// validateEntry normalizes e in place and reports the first problem.
func validateEntry(e *content.Entry) error {
	e.URL = strings.TrimSpace(e.URL)
	e.Title = strings.TrimSpace(e.Title)
	if !strings.HasPrefix(e.URL, "/") {
		return errors.New("url must be a site-relative path starting with /")
	}
	if e.Title == "" {
		return errors.New("title is required")
	}
	pt := content.ParsePageType(string(e.PageType))
	if pt == "" {
		return errors.New("pageType must be one of service, health-benefit, blog, page")
	}
	e.PageType = pt
	e.MainKeywords = FilterEmpty(e.MainKeywords)
	e.RelatedPages = FilterEmpty(e.RelatedPages)
	if e.ContentSummary != nil && strings.TrimSpace(*e.ContentSummary) == "" {
		e.ContentSummary = nil
	}
	return nil
}

func (a *App) handleAdminSaveEntry(c echo.Context) error {
	var entry content.Entry
	if err := c.Bind(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entry")
	}
	if err := validateEntry(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	now := a.now().UTC()
	if prev, err := a.Store.GetEntry(ctx, entry.URL); err == nil && entry.CreatedAt.IsZero() {
		entry.CreatedAt = prev.CreatedAt
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.LastModifiedAt = now
	if err := a.Store.SaveEntry(ctx, entry); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, entry)
}

func (a *App) handleAdminDeleteEntry(c echo.Context) error {
	u := c.QueryParam("url")
	if u == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	if err := a.Store.DeleteEntry(c.Request().Context(), u); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "entry not found")
		}
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}
