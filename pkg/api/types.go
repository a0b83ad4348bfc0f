package api

import (
	"time"

	"github.com/buildsight/fieldsearch/pkg/core"
)

type SearchResponse struct {
	Query   string              `json:"query"`
	Results []core.SearchResult `json:"results"`
	Count   int                 `json:"count"`
	Offline bool                `json:"offline"`
	SavedAt time.Time           `json:"saved_at,omitzero"`
	TookMs  int64               `json:"took_ms"`
}

type SuggestionItem struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Weight float64 `json:"weight"`
}

type SuggestResponse struct {
	Query       string           `json:"query"`
	Suggestions []SuggestionItem `json:"suggestions"`
	Count       int              `json:"count"`
}

type HistoryResponse struct {
	Entries []core.HistoryEntry `json:"entries"`
	Count   int                 `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	// LastResults carries the most recently applied result set when search
	// is unavailable, so clients can keep showing something useful.
	LastResults *SearchResponse `json:"last_results,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
