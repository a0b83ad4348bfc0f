package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// API routes with method-specific routing
	mux.HandleFunc("GET /api/v1/search", s.HandleSearch)
	mux.HandleFunc("GET /api/v1/suggest", s.HandleSuggest)
	mux.HandleFunc("GET /api/v1/history", s.HandleHistory)
	mux.HandleFunc("DELETE /api/v1/history", s.HandleClearHistory)
	mux.HandleFunc("GET /api/v1/stats", s.HandleStats)
	mux.HandleFunc("GET /api/v1/stream", s.HandleStream)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
