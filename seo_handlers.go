package saunasite

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/saunasite/content"
	"github.com/eringen/saunasite/logger"
	"github.com/eringen/saunasite/search"
	"github.com/eringen/saunasite/seo"
)

// countedIndex records the outcome of each content index read.
type countedIndex struct {
	src     content.IndexSource
	metrics *appMetrics
}

func (s countedIndex) ListEntries(ctx context.Context) ([]content.Entry, error) {
	entries, err := s.src.ListEntries(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "degraded"
	}
	s.metrics.suggests.WithLabelValues(outcome).Inc()
	return entries, err
}

// handleSuggestions ranks internal link candidates for the article being
// edited. An unreadable index degrades to the contact suggestion alone.
func (a *App) handleSuggestions(c echo.Context) error {
	title := strings.TrimSpace(c.QueryParam("title"))
	category := content.PageType(strings.TrimSpace(c.QueryParam("category")))
	ctx, cancel := a.readContext(c)
	defer cancel()
	src := countedIndex{src: a.Cache, metrics: a.metrics}
	return c.JSON(http.StatusOK, seo.SuggestFrom(ctx, src, a.Log, title, category))
}

type auditRequest struct {
	Content string `json:"content" form:"content"`
}

func (a *App) handleAudit(c echo.Context) error {
	var req auditRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid audit request")
	}
	return c.JSON(http.StatusOK, a.Auditor.Audit(req.Content))
}

func (a *App) handleHealthReport(c echo.Context) error {
	ctx, cancel := a.readContext(c)
	defer cancel()
	report, err := a.healthReport(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// healthReport builds the content health report and publishes its issue
// total as a gauge.
func (a *App) healthReport(ctx context.Context) (seo.HealthReport, error) {
	report, err := seo.HealthFrom(ctx, a.Cache, a.now())
	if err != nil {
		return seo.HealthReport{}, err
	}
	a.metrics.healthGap.Set(float64(report.TotalIssues))
	return report, nil
}

// SearchContent runs a full-text query over the content index and posts.
// Loading the snapshot first rebuilds the index when the cache is stale.
func (a *App) SearchContent(ctx context.Context, q string, limit int) ([]search.Hit, error) {
	if _, err := a.Cache.Snapshot(ctx); err != nil {
		a.Log.Warn("search serving from previous index", logger.Error(err))
	}
	hits, err := a.Search.Search(q, limit)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	return hits, nil
}

func (a *App) handleSearch(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	ctx, cancel := a.readContext(c)
	defer cancel()
	hits, err := a.SearchContent(ctx, c.QueryParam("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hits)
}
