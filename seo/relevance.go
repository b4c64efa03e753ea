// Package seo implements the internal-linking tools used while editing
// articles: relevance-ranked link suggestions, link density audits and the
// content health report.
package seo

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/eringen/saunasite/content"
	"github.com/eringen/saunasite/logger"
)

// Score weights.
const (
	ScoreTitleHit    = 30
	ScoreKeywordHit  = 20
	ScoreCategoryHit = 25

	// NoiseFloor is the highest score that is still discarded.
	NoiseFloor = 15
	// BucketSize caps each suggestion group.
	BucketSize = 3

	minTokenLen = 4
	maxScore    = 100
)

// LinkSuggestion is a candidate internal link for an article being edited.
type LinkSuggestion struct {
	URL            string           `json:"url"`
	Title          string           `json:"title"`
	Type           content.PageType `json:"type"`
	RelevanceScore int              `json:"relevanceScore"`
	Excerpt        string           `json:"excerpt,omitempty"`
}

// Suggestions groups ranked link candidates by target type.
type Suggestions struct {
	Services []LinkSuggestion `json:"services"`
	Health   []LinkSuggestion `json:"health"`
	Blogs    []LinkSuggestion `json:"blogs"`
	Contact  LinkSuggestion   `json:"contact"`
}

// ContactSuggestion is offered for every article.
var ContactSuggestion = LinkSuggestion{
	URL:            "/contact",
	Title:          "Contact Us",
	Type:           content.PageTypePage,
	RelevanceScore: 100,
}

func emptySuggestions() Suggestions {
	return Suggestions{
		Services: []LinkSuggestion{},
		Health:   []LinkSuggestion{},
		Blogs:    []LinkSuggestion{},
		Contact:  ContactSuggestion,
	}
}

// Tokenize lowercases title and returns its words longer than three
// characters. Short words ("the", "for") carry no topical signal.
func Tokenize(title string) []string {
	var tokens []string
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(w)) >= minTokenLen {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// ScoreEntry returns the clamped relevance of entry for the given tokens and
// category. An empty category never matches.
func ScoreEntry(tokens []string, category content.PageType, entry content.Entry) int {
	title := strings.ToLower(entry.Title)
	keywords := make([]string, len(entry.MainKeywords))
	for i, k := range entry.MainKeywords {
		keywords[i] = strings.ToLower(k)
	}

	score := 0
	for _, tok := range tokens {
		if strings.Contains(title, tok) {
			score += ScoreTitleHit
		}
		for _, k := range keywords {
			if strings.Contains(k, tok) {
				score += ScoreKeywordHit
				break
			}
		}
	}
	if category != "" && entry.PageType == category {
		score += ScoreCategoryHit
	}
	return clamp(score)
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// Rank scores every entry and returns those above the noise floor, highest
// first. Equal scores are ordered by URL.
func Rank(title string, category content.PageType, index []content.Entry) []LinkSuggestion {
	tokens := Tokenize(title)
	ranked := make([]LinkSuggestion, 0, len(index))
	for _, e := range index {
		if e.URL == "" {
			continue
		}
		score := ScoreEntry(tokens, category, e)
		if score <= NoiseFloor {
			continue
		}
		ranked = append(ranked, LinkSuggestion{
			URL:            e.URL,
			Title:          e.Title,
			Type:           e.PageType,
			RelevanceScore: score,
			Excerpt:        e.Excerpt,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RelevanceScore != ranked[j].RelevanceScore {
			return ranked[i].RelevanceScore > ranked[j].RelevanceScore
		}
		return ranked[i].URL < ranked[j].URL
	})
	return ranked
}

// Score ranks index against a candidate article and groups the top matches
// by target type.
func Score(title string, category content.PageType, index []content.Entry) Suggestions {
	out := emptySuggestions()
	for _, s := range Rank(title, category, index) {
		switch s.Type {
		case content.PageTypeService:
			if len(out.Services) < BucketSize {
				out.Services = append(out.Services, s)
			}
		case content.PageTypeHealthBenefit:
			if len(out.Health) < BucketSize {
				out.Health = append(out.Health, s)
			}
		case content.PageTypeBlog:
			if len(out.Blogs) < BucketSize {
				out.Blogs = append(out.Blogs, s)
			}
		}
	}
	return out
}

// SuggestFrom reads the index from src and scores it. A failed read is
// logged and yields only the contact suggestion.
func SuggestFrom(ctx context.Context, src content.IndexSource, log logger.Logger, title string, category content.PageType) Suggestions {
	index, err := src.ListEntries(ctx)
	if err != nil {
		if log != nil {
			log.Warn("link suggestions degraded: content index unavailable", logger.Error(err))
		}
		return emptySuggestions()
	}
	return Score(title, category, index)
}
