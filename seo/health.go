package seo

import (
	"context"
	"strings"
	"time"

	"github.com/eringen/saunasite/content"
)

// StaleAfter is how long an entry may go without modification before it is
// reported as stale. An entry exactly StaleAfter old is still fresh.
const StaleAfter = 180 * 24 * time.Hour

// Triage limits for HealthReport.TopIssues.
const (
	topOrphaned        = 3
	topMissingMetadata = 2
)

// Issue labels used in HealthReport.TopIssues.
const (
	IssueOrphaned        = "Orphaned page: no related pages"
	IssueMissingMetadata = "Missing metadata: keywords or summary"
)

// HealthIssue is one entry needing editorial attention.
type HealthIssue struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Issue string `json:"issue"`
}

// HealthReport aggregates structural SEO issues across the content index.
type HealthReport struct {
	TotalPages          int           `json:"totalPages"`
	TotalIssues         int           `json:"totalIssues"`
	OrphanedPages       int           `json:"orphanedPages"`
	StaleContent        int           `json:"staleContent"`
	MissingMetadata     int           `json:"missingMetadata"`
	BrokenRelationships int           `json:"brokenRelationships"`
	TopIssues           []HealthIssue `json:"topIssues"`
}

// IsOrphaned reports whether e has no related pages.
func IsOrphaned(e content.Entry) bool {
	return len(e.RelatedPages) == 0
}

// IsStale reports whether e was last touched more than StaleAfter before
// now. Entries without any timestamp are not considered stale.
func IsStale(e content.Entry, now time.Time) bool {
	t := e.LastTouched()
	if t.IsZero() {
		return false
	}
	return now.Sub(t) > StaleAfter
}

// IsMissingMetadata reports whether e lacks keywords or a content summary.
// A blank summary counts as absent.
func IsMissingMetadata(e content.Entry) bool {
	return len(e.MainKeywords) == 0 || e.ContentSummary == nil || strings.TrimSpace(*e.ContentSummary) == ""
}

// HasBrokenRelationship reports whether any related page of e is absent
// from known.
func HasBrokenRelationship(e content.Entry, known map[string]struct{}) bool {
	for _, rel := range e.RelatedPages {
		if _, ok := known[rel]; !ok {
			return true
		}
	}
	return false
}

// Health classifies every entry of index. Orphaned entries are listed
// first in TopIssues, then entries missing metadata.
func Health(index []content.Entry, now time.Time) HealthReport {
	known := make(map[string]struct{}, len(index))
	for _, e := range index {
		known[e.URL] = struct{}{}
	}

	report := HealthReport{TotalPages: len(index)}
	var orphaned, incomplete []HealthIssue
	for _, e := range index {
		if IsOrphaned(e) {
			report.OrphanedPages++
			orphaned = append(orphaned, HealthIssue{URL: e.URL, Title: e.Title, Issue: IssueOrphaned})
		}
		if IsStale(e, now) {
			report.StaleContent++
		}
		if IsMissingMetadata(e) {
			report.MissingMetadata++
			incomplete = append(incomplete, HealthIssue{URL: e.URL, Title: e.Title, Issue: IssueMissingMetadata})
		}
		if HasBrokenRelationship(e, known) {
			report.BrokenRelationships++
		}
	}
	report.TotalIssues = report.OrphanedPages + report.StaleContent + report.MissingMetadata + report.BrokenRelationships

	report.TopIssues = make([]HealthIssue, 0, topOrphaned+topMissingMetadata)
	report.TopIssues = append(report.TopIssues, orphaned[:min(len(orphaned), topOrphaned)]...)
	report.TopIssues = append(report.TopIssues, incomplete[:min(len(incomplete), topMissingMetadata)]...)
	return report
}

// HealthFrom reads the index from src and builds the report.
func HealthFrom(ctx context.Context, src content.IndexSource, now time.Time) (HealthReport, error) {
	index, err := src.ListEntries(ctx)
	if err != nil {
		return HealthReport{}, err
	}
	return Health(index, now), nil
}
