// Package mcptools exposes the SEO authoring tools over the Model Context
// Protocol so an editor's assistant can request link suggestions, audit a
// draft and read the content health report.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/eringen/saunasite/content"
	"github.com/eringen/saunasite/logger"
	"github.com/eringen/saunasite/search"
	"github.com/eringen/saunasite/seo"
)

const serverName = "saunasite-seo"

// Searcher runs full-text queries over the content index.
type Searcher interface {
	Search(ctx context.Context, q string, limit int) ([]search.Hit, error)
}

// Tools holds the dependencies of the MCP tool handlers.
type Tools struct {
	Index   content.IndexSource
	Auditor *seo.Auditor
	Search  Searcher // optional
	Log     logger.Logger
	Now     func() time.Time
}

func (t *Tools) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// SuggestInput is the input of suggest_internal_links.
type SuggestInput struct {
	Title    string `json:"title" jsonschema:"title of the article being written"`
	Category string `json:"category,omitempty" jsonschema:"page type of the article: service, health-benefit, blog or page"`
}

// SuggestInternalLinks ranks existing pages as link targets for a draft.
func (t *Tools) SuggestInternalLinks(ctx context.Context, req *mcp.CallToolRequest, in SuggestInput) (*mcp.CallToolResult, seo.Suggestions, error) {
	category := content.PageType(strings.TrimSpace(in.Category))
	return nil, seo.SuggestFrom(ctx, t.Index, t.Log, in.Title, category), nil
}

// AuditInput is the input of audit_internal_links.
type AuditInput struct {
	Content string `json:"content" jsonschema:"article body as markdown or HTML"`
}

// AuditInternalLinks counts internal links in a draft and grades density.
func (t *Tools) AuditInternalLinks(ctx context.Context, req *mcp.CallToolRequest, in AuditInput) (*mcp.CallToolResult, seo.Audit, error) {
	if t.Auditor == nil {
		return nil, seo.Audit{}, errors.New("auditor not configured")
	}
	return nil, t.Auditor.Audit(in.Content), nil
}

// HealthInput is the input of content_health_report.
type HealthInput struct{}

// ContentHealthReport reports orphaned, stale and incomplete index entries.
func (t *Tools) ContentHealthReport(ctx context.Context, req *mcp.CallToolRequest, in HealthInput) (*mcp.CallToolResult, seo.HealthReport, error) {
	report, err := seo.HealthFrom(ctx, t.Index, t.now())
	if err != nil {
		return nil, seo.HealthReport{}, fmt.Errorf("content health report: %w", err)
	}
	return nil, report, nil
}

// SearchInput is the input of search_content.
type SearchInput struct {
	Query string `json:"query" jsonschema:"words to search for in titles, keywords and bodies"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of hits, default 10"`
}

// SearchOutput is the output of search_content.
type SearchOutput struct {
	Hits  []search.Hit `json:"hits"`
	Count int          `json:"count"`
}

// SearchContent runs a full-text query over pages and posts.
func (t *Tools) SearchContent(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	hits, err := t.Search.Search(ctx, in.Query, in.Limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, SearchOutput{Hits: hits, Count: len(hits)}, nil
}

// Register adds the tools to server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "suggest_internal_links",
			Description: "Suggest up to three service, health-benefit and blog pages to link from an article, ranked by relevance to its title and category. Always includes the contact page.",
		},
		t.SuggestInternalLinks,
	)
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "audit_internal_links",
			Description: "Count internal links in an article body and grade the density: poor (0-2), fair (3-5), good (6-8) or excessive (9+).",
		},
		t.AuditInternalLinks,
	)
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "content_health_report",
			Description: "Report orphaned pages, stale content, missing metadata and broken related-page links across the content index.",
		},
		t.ContentHealthReport,
	)
	if t.Search != nil {
		mcp.AddTool(server,
			&mcp.Tool{
				Name:        "search_content",
				Description: "Full-text search over site pages and blog posts.",
			},
			t.SearchContent,
		)
	}
}

// NewServer creates an MCP server with the tools registered.
func NewServer(t *Tools, version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version,
		},
		nil,
	)
	t.Register(server)
	return server
}

// Serve runs the tools over stdio until ctx is done or the client leaves.
func Serve(ctx context.Context, t *Tools, version string) error {
	if t.Log != nil {
		t.Log.Info("mcp server starting", logger.String("name", serverName), logger.String("version", version))
	}
	return NewServer(t, version).Run(ctx, &mcp.StdioTransport{})
}
