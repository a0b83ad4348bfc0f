package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/buildsight/fieldsearch/pkg/core"
	"github.com/buildsight/fieldsearch/pkg/search"
	"github.com/buildsight/fieldsearch/pkg/version"
)

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "Missing query parameter", "Query parameter 'q' is required")
		return
	}

	filters, err := ParseFilters(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}
	sctx, err := ParseContext(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid context", err.Error())
		return
	}

	set, err := s.orch.Search(r.Context(), query, filters, sctx)
	if err != nil {
		if errors.Is(err, search.ErrSearchUnavailable) {
			// Search alongside the error returns the last applied set,
			// if there is one. Degrade gracefully instead of going blank.
			resp := ErrorResponse{Error: "Search unavailable", Message: err.Error()}
			if set != nil {
				last := newSearchResponse(set)
				resp.LastResults = &last
			}
			s.writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}

	s.logger.Debugf("search %q request=%s results=%d offline=%v",
		query, RequestID(r.Context()), len(set.Results), set.Offline)

	s.writeJSON(w, http.StatusOK, newSearchResponse(set))
}

func newSearchResponse(set *core.ResultSet) SearchResponse {
	return SearchResponse{
		Query:   set.Query,
		Results: set.Results,
		Count:   len(set.Results),
		Offline: set.Offline,
		SavedAt: set.SavedAt,
		TookMs:  set.Took.Milliseconds(),
	}
}

func (s *Server) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	sctx, err := ParseContext(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid context", err.Error())
		return
	}

	suggestions := s.suggester.Load().Suggest(r.Context(), query, sctx)

	items := make([]SuggestionItem, len(suggestions))
	for i, sg := range suggestions {
		items[i] = SuggestionItem{
			Text:   sg.Text,
			Source: sg.Source.String(),
			Weight: sg.Weight,
		}
	}

	s.writeJSON(w, http.StatusOK, SuggestResponse{
		Query:       query,
		Suggestions: items,
		Count:       len(items),
	})
}

func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "Invalid limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.store.RecentHistory(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to read history", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, HistoryResponse{
		Entries: entries,
		Count:   len(entries),
	})
}

func (s *Server) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearHistory(); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to clear history", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to get stats", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}
