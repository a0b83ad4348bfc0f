package api

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/buildsight/fieldsearch/pkg/log"
	"github.com/buildsight/fieldsearch/pkg/realtime"
	"github.com/buildsight/fieldsearch/pkg/search"
	"github.com/buildsight/fieldsearch/pkg/storage"
	"github.com/buildsight/fieldsearch/pkg/suggest"
)

// Server exposes the search pipeline over HTTP and WebSocket.
type Server struct {
	orch      *search.Orchestrator
	store     *storage.Store
	suggester atomic.Pointer[suggest.Aggregator]
	hub       *realtime.Hub
	logger    *log.Logger
}

func NewServer(orch *search.Orchestrator, store *storage.Store, suggester *suggest.Aggregator, hub *realtime.Hub) *Server {
	s := &Server{
		orch:   orch,
		store:  store,
		hub:    hub,
		logger: log.ForComponent("api"),
	}
	s.suggester.Store(suggester)
	return s
}

// SwapSuggester replaces the suggestion aggregator, used when the serve
// command reloads config (trending list, limit).
func (s *Server) SwapSuggester(a *suggest.Aggregator) {
	if a != nil {
		s.suggester.Store(a)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware tags each request with an id, echoed in the response
// header and attached to log lines via the request context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}
