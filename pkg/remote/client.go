// Package remote implements the HTTP client for the hosted search
// service. Every kind of failure here is recoverable by design: callers
// treat ErrRemoteUnavailable as the signal to fall back to the offline
// cache, never as a fatal condition.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/buildsight/fieldsearch/pkg/core"
	"github.com/buildsight/fieldsearch/pkg/log"
)

// ErrRemoteUnavailable reports that the remote search service could not
// answer: transport error, timeout, non-success status, or an
// undecodable response.
var ErrRemoteUnavailable = errors.New("remote search unavailable")

// DefaultTimeout bounds a single remote round trip unless overridden.
const DefaultTimeout = 5 * time.Second

var logger = log.ForComponent("remote")

// Client talks to the remote search service.
type Client struct {
	endpoint string
	limit    int
	fuzzy    bool
	http     *http.Client
}

// Option tweaks client construction.
type Option func(*Client)

// WithTimeout bounds a single search attempt. Default 5s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLimit sets the maximum results requested per query. Default 50.
func WithLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithFuzzy enables fuzzy matching on the remote side.
func WithFuzzy(fuzzy bool) Option {
	return func(c *Client) {
		c.fuzzy = fuzzy
	}
}

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient creates a client for the service at endpoint (base URL).
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		limit:    50,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchRequest is the wire form of a remote query.
type searchRequest struct {
	Query    string             `json:"query"`
	Limit    int                `json:"limit"`
	Fuzzy    bool               `json:"fuzzy"`
	Filters  core.SearchFilters `json:"filters,omitzero"`
	Role     core.Role          `json:"role,omitempty"`
	Location *core.Coordinates  `json:"location,omitempty"`
	Patches  []string           `json:"patches,omitempty"`
}

type searchResponse struct {
	Results []core.SearchResult `json:"results"`
}

// Search runs one query against the remote service. The context bounds
// the attempt in addition to the client timeout; cancellation from a
// superseded query aborts the request.
func (c *Client) Search(ctx context.Context, query string, filters core.SearchFilters, sctx core.SearchContext) ([]core.SearchResult, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("%w: no endpoint configured", ErrRemoteUnavailable)
	}

	body, err := json.Marshal(searchRequest{
		Query:    query,
		Limit:    c.limit,
		Fuzzy:    c.fuzzy,
		Filters:  filters,
		Role:     sctx.Role,
		Location: sctx.Location,
		Patches:  sctx.Patches,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warnf("closing response body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrRemoteUnavailable, err)
	}

	return decoded.Results, nil
}
