package suggest

import (
	"context"
	"fmt"

	"github.com/buildsight/fieldsearch/pkg/core"
)

// Base weights per source. History outweighs everything: a query the user
// has typed before is the strongest signal. Frequency adds a bounded
// bonus on top so often-repeated queries float upward.
const (
	historyBaseWeight = 1.0
	frequencyBonusCap = 0.5
	trendingWeight    = 0.8
	contextualWeight  = 0.6
	locationWeight    = 0.5
)

// HistoryReader is the slice of the store the history source needs.
type HistoryReader interface {
	RecentHistory(n int) ([]core.HistoryEntry, error)
	SuggestionCount(query string) (int, error)
}

// HistorySource suggests the caller's own recent queries.
type HistorySource struct {
	store HistoryReader
}

func NewHistorySource(store HistoryReader) *HistorySource {
	return &HistorySource{store: store}
}

func (s *HistorySource) Name() string { return "history" }

func (s *HistorySource) Suggest(ctx context.Context, partial string, sctx core.SearchContext) ([]core.Suggestion, error) {
	entries, err := s.store.RecentHistory(0)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var out []core.Suggestion
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !matches(e.Query, partial) {
			continue
		}
		count, err := s.store.SuggestionCount(e.Query)
		if err != nil {
			count = 0
		}
		bonus := float64(count) * 0.05
		if bonus > frequencyBonusCap {
			bonus = frequencyBonusCap
		}
		out = append(out, core.Suggestion{
			Text:   e.Query,
			Source: core.SourceHistory,
			Weight: historyBaseWeight + bonus,
		})
	}
	return out, nil
}

// TrendingSource suggests from an externally supplied popular-query list.
type TrendingSource struct {
	queries []string
}

func NewTrendingSource(queries []string) *TrendingSource {
	return &TrendingSource{queries: queries}
}

func (s *TrendingSource) Name() string { return "trending" }

func (s *TrendingSource) Suggest(ctx context.Context, partial string, sctx core.SearchContext) ([]core.Suggestion, error) {
	var out []core.Suggestion
	for _, q := range s.queries {
		if !matches(q, partial) {
			continue
		}
		out = append(out, core.Suggestion{
			Text:   q,
			Source: core.SourceTrending,
			Weight: trendingWeight,
		})
	}
	return out, nil
}

// rolePhrases maps a role to the canned queries that matter to it.
var rolePhrases = map[core.Role][]string{
	core.RoleAdmin: {
		"pending user requests",
		"data quality issues",
		"eba expiry this quarter",
	},
	core.RoleLeadOrganiser: {
		"patch coverage",
		"organiser activity this week",
		"compliance issues",
	},
	core.RoleOrganiser: {
		"compliance issues",
		"sites needing visit",
		"delegates without training",
	},
	core.RoleDelegate: {
		"my site",
		"upcoming site meetings",
	},
	core.RoleViewer: {
		"active projects",
	},
}

// ContextualSource suggests canned phrases for the caller's role.
type ContextualSource struct{}

func NewContextualSource() *ContextualSource { return &ContextualSource{} }

func (s *ContextualSource) Name() string { return "contextual" }

func (s *ContextualSource) Suggest(ctx context.Context, partial string, sctx core.SearchContext) ([]core.Suggestion, error) {
	var out []core.Suggestion
	for _, phrase := range rolePhrases[sctx.Role] {
		if !matches(phrase, partial) {
			continue
		}
		out = append(out, core.Suggestion{
			Text:   phrase,
			Source: core.SourceContextual,
			Weight: contextualWeight,
		})
	}
	return out, nil
}

var locationPhrases = []string{
	"nearby projects",
	"sites near me",
	"employers active nearby",
}

// LocationSource suggests proximity phrases, but only when the caller
// has a known location to make them answerable.
type LocationSource struct{}

func NewLocationSource() *LocationSource { return &LocationSource{} }

func (s *LocationSource) Name() string { return "location" }

func (s *LocationSource) Suggest(ctx context.Context, partial string, sctx core.SearchContext) ([]core.Suggestion, error) {
	if sctx.Location == nil {
		return nil, nil
	}
	var out []core.Suggestion
	for _, phrase := range locationPhrases {
		if !matches(phrase, partial) {
			continue
		}
		out = append(out, core.Suggestion{
			Text:   phrase,
			Source: core.SourceLocation,
			Weight: locationWeight,
		})
	}
	return out, nil
}
