package seo

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/eringen/saunasite/content"
	"github.com/eringen/saunasite/logger"
)

func sampleIndex() []content.Entry {
	return []content.Entry{
		{URL: "/services/outdoor-sauna-kits", Title: "Outdoor Sauna Kits", PageType: content.PageTypeService, MainKeywords: []string{"outdoor", "sauna"}},
		{URL: "/services/indoor-sauna-installation", Title: "Indoor Sauna Installation", PageType: content.PageTypeService, MainKeywords: []string{"indoor", "installation"}},
		{URL: "/health-benefits/heat-therapy", Title: "Heat Therapy Benefits", PageType: content.PageTypeHealthBenefit, MainKeywords: []string{"sauna health", "heat"}},
		{URL: "/blog/choosing-a-sauna-heater", Title: "Choosing a Sauna Heater", PageType: content.PageTypeBlog, MainKeywords: []string{"heater"}},
		{URL: "/about", Title: "About Our Team", PageType: content.PageTypePage},
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Best Outdoor Sauna Ideas for 2024!")
	want := []string{"best", "outdoor", "sauna", "ideas", "2024"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
	if got := Tokenize("the and for"); len(got) != 0 {
		t.Errorf("short words should be dropped, got %v", got)
	}
}

func TestScoreEndToEnd(t *testing.T) {
	index := []content.Entry{
		{URL: "/services/outdoor-sauna-kits", PageType: content.PageTypeService, Title: "Outdoor Sauna Kits", MainKeywords: []string{"outdoor", "sauna"}},
	}
	got := Score("Best Outdoor Sauna Ideas for 2024", content.PageTypeService, index)
	if len(got.Services) != 1 {
		t.Fatalf("expected 1 service suggestion, got %d", len(got.Services))
	}
	s := got.Services[0]
	if s.URL != "/services/outdoor-sauna-kits" {
		t.Errorf("URL = %q", s.URL)
	}
	if s.RelevanceScore < ScoreTitleHit+ScoreCategoryHit {
		t.Errorf("score = %d, want at least %d", s.RelevanceScore, ScoreTitleHit+ScoreCategoryHit)
	}
	if s.RelevanceScore > 100 {
		t.Errorf("score = %d, must be clamped to 100", s.RelevanceScore)
	}
	if got.Contact != ContactSuggestion || got.Contact.RelevanceScore != 100 || got.Contact.URL != "/contact" {
		t.Errorf("contact = %+v", got.Contact)
	}
}

func TestScoreEntryClamps(t *testing.T) {
	e := content.Entry{
		URL:          "/services/x",
		Title:        "outdoor cedar barrel sauna heater",
		PageType:     content.PageTypeService,
		MainKeywords: []string{"outdoor cedar barrel sauna heater"},
	}
	tokens := Tokenize("outdoor cedar barrel sauna heater")
	if got := ScoreEntry(tokens, content.PageTypeService, e); got != 100 {
		t.Errorf("ScoreEntry = %d, want clamp to 100", got)
	}
}

func TestScoreEntryWeights(t *testing.T) {
	e := content.Entry{Title: "Heat Therapy", MainKeywords: []string{"Wellness"}, PageType: content.PageTypeHealthBenefit}
	tests := []struct {
		name     string
		title    string
		category content.PageType
		want     int
	}{
		{"title hit", "heat", "", 30},
		{"keyword hit case insensitive", "WELLNESS", "", 20},
		{"title and keyword", "therapy wellness", "", 50},
		{"category only", "nothing matches", content.PageTypeHealthBenefit, 25},
		{"empty category never matches", "nothing matches", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreEntry(Tokenize(tt.title), tt.category, e); got != tt.want {
				t.Errorf("ScoreEntry = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRankNoiseFloor(t *testing.T) {
	index := []content.Entry{
		{URL: "/health-benefits/a", Title: "Unrelated", PageType: content.PageTypeHealthBenefit, MainKeywords: []string{"sauna"}},
		{URL: "/blog/b", Title: "Sauna stories", PageType: content.PageTypeBlog},
	}
	ranked := Rank("sauna", "", index)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(ranked))
	}
	for _, s := range ranked {
		if s.RelevanceScore <= NoiseFloor {
			t.Errorf("suggestion %q has score %d at or below floor", s.URL, s.RelevanceScore)
		}
	}
	if got := Rank("nothing", "", index); len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
}

func TestScoreBucketCap(t *testing.T) {
	var index []content.Entry
	for i := 0; i < 10; i++ {
		index = append(index,
			content.Entry{URL: fmt.Sprintf("/services/s%d", i), Title: "Sauna service", PageType: content.PageTypeService},
			content.Entry{URL: fmt.Sprintf("/health-benefits/h%d", i), Title: "Sauna health", PageType: content.PageTypeHealthBenefit},
			content.Entry{URL: fmt.Sprintf("/blog/b%d", i), Title: "Sauna blog", PageType: content.PageTypeBlog},
		)
	}
	got := Score("sauna", "", index)
	if len(got.Services) != BucketSize || len(got.Health) != BucketSize || len(got.Blogs) != BucketSize {
		t.Errorf("bucket sizes = %d/%d/%d, want %d each", len(got.Services), len(got.Health), len(got.Blogs), BucketSize)
	}
}

func TestRankTieBreakByURL(t *testing.T) {
	index := []content.Entry{
		{URL: "/services/zeta", Title: "Sauna", PageType: content.PageTypeService},
		{URL: "/services/alpha", Title: "Sauna", PageType: content.PageTypeService},
		{URL: "/services/mid", Title: "Sauna", PageType: content.PageTypeService},
	}
	got := Rank("sauna", "", index)
	want := []string{"/services/alpha", "/services/mid", "/services/zeta"}
	for i, w := range want {
		if got[i].URL != w {
			t.Errorf("Rank[%d] = %q, want %q", i, got[i].URL, w)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	index := sampleIndex()
	first := Score("Sauna heater installation guide", content.PageTypeBlog, index)
	for i := 0; i < 20; i++ {
		if got := Score("Sauna heater installation guide", content.PageTypeBlog, index); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestScoreSkipsPageEntriesFromBuckets(t *testing.T) {
	got := Score("About our sauna team", content.PageTypePage, sampleIndex())
	for _, group := range [][]LinkSuggestion{got.Services, got.Health, got.Blogs} {
		for _, s := range group {
			if s.Type == content.PageTypePage {
				t.Errorf("page entry %q should not be bucketed", s.URL)
			}
		}
	}
}

type failingSource struct{}

func (failingSource) ListEntries(context.Context) ([]content.Entry, error) {
	return nil, errors.New("store down")
}

type staticSource []content.Entry

func (s staticSource) ListEntries(context.Context) ([]content.Entry, error) {
	return s, nil
}

func TestSuggestFromFailsSoft(t *testing.T) {
	got := SuggestFrom(context.Background(), failingSource{}, logger.NewNop(), "Outdoor sauna", content.PageTypeService)
	if len(got.Services) != 0 || len(got.Health) != 0 || len(got.Blogs) != 0 {
		t.Errorf("expected empty buckets, got %+v", got)
	}
	if got.Services == nil || got.Health == nil || got.Blogs == nil {
		t.Error("buckets should be empty slices so they encode as []")
	}
	if got.Contact.URL != "/contact" {
		t.Errorf("contact suggestion missing: %+v", got.Contact)
	}
}

func TestSuggestFrom(t *testing.T) {
	got := SuggestFrom(context.Background(), staticSource(sampleIndex()), nil, "Outdoor sauna kits", content.PageTypeService)
	if len(got.Services) == 0 || got.Services[0].URL != "/services/outdoor-sauna-kits" {
		t.Errorf("unexpected services: %+v", got.Services)
	}
}
