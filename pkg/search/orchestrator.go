// Package search coordinates the full query path: debounced input, remote
// search with offline fallback, local filtering and ranking, persistence of
// successful results, and publication of applied result sets.
//
// The orchestrator is the single entry point used by both the CLI and the
// HTTP API. It owns the stale-response guard: every dispatched query gets a
// monotonically increasing sequence number, and a response that arrives after
// a newer one has already been applied is dropped silently. This keeps a
// slow early request from clobbering the answer to the user's latest input.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/buildsight/fieldsearch/pkg/core"
	"github.com/buildsight/fieldsearch/pkg/filter"
	"github.com/buildsight/fieldsearch/pkg/log"
	"github.com/buildsight/fieldsearch/pkg/rank"
	"github.com/buildsight/fieldsearch/pkg/realtime"
	"github.com/buildsight/fieldsearch/pkg/remote"
	"github.com/buildsight/fieldsearch/pkg/storage"
)

// ErrSearchUnavailable is returned when both the remote service and the
// offline cache failed to produce results for a query.
var ErrSearchUnavailable = errors.New("search unavailable: remote failed and no cached results")

// Remote is the live search backend. *remote.Client satisfies it.
type Remote interface {
	Search(ctx context.Context, query string, filters core.SearchFilters, sctx core.SearchContext) ([]core.SearchResult, error)
}

// Index is the durable offline store. *storage.Store satisfies it.
type Index interface {
	GetCached(query string, filters core.SearchFilters) (*storage.CachedResults, error)
	PutCached(query string, filters core.SearchFilters, results []core.SearchResult) error
	AddHistory(query string) error
	BumpSuggestion(query string) error
}

// Connectivity reports whether the remote service is reachable. Implementations
// are expected to be cheap; the orchestrator consults it on every dispatch.
type Connectivity interface {
	Online() bool
}

// ConnectivityFunc adapts a plain function to the Connectivity interface.
type ConnectivityFunc func() bool

func (f ConnectivityFunc) Online() bool { return f() }

type pendingQuery struct {
	query   string
	filters core.SearchFilters
	sctx    core.SearchContext
}

// Orchestrator runs queries against the remote backend with offline fallback.
// It is safe for concurrent use.
type Orchestrator struct {
	remote Remote
	index  Index
	conn   Connectivity
	hub    *realtime.Hub
	logger *log.Logger

	debounce      time.Duration
	remoteTimeout time.Duration
	memo          *gocache.Cache

	seq atomic.Uint64

	mu         sync.Mutex
	appliedSeq uint64
	last       *core.ResultSet
	pending    pendingQuery
	timer      *time.Timer
	gen        uint64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConnectivity sets the connectivity probe. Without one the orchestrator
// assumes the remote service is reachable and relies on fallback.
func WithConnectivity(c Connectivity) Option {
	return func(o *Orchestrator) { o.conn = c }
}

// WithHub sets the realtime hub that applied result sets are published to.
func WithHub(h *realtime.Hub) Option {
	return func(o *Orchestrator) { o.hub = h }
}

// WithDebounce sets the window within which successive Submit calls collapse
// to the last one.
func WithDebounce(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithRemoteTimeout bounds a single remote round trip.
func WithRemoteTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.remoteTimeout = d
		}
	}
}

// WithMemoTTL sets how long a remote result set is reused in memory before a
// repeated identical query goes back to the wire.
func WithMemoTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.memo = gocache.New(ttl, 2*ttl)
		}
	}
}

// NewOrchestrator wires a query pipeline over the given backend and store.
func NewOrchestrator(rem Remote, index Index, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		remote:        rem,
		index:         index,
		logger:        log.ForComponent("search"),
		debounce:      300 * time.Millisecond,
		remoteTimeout: remote.DefaultTimeout,
		memo:          gocache.New(30*time.Second, time.Minute),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Search runs a query synchronously and returns the result set it produced.
// The set is applied (stored as latest, published to the hub) only if no
// newer query has been applied in the meantime; the caller still receives it
// either way.
//
// When both the remote and offline paths fail, Search returns
// ErrSearchUnavailable along with the last successfully applied set, if any.
func (o *Orchestrator) Search(ctx context.Context, query string, filters core.SearchFilters, sctx core.SearchContext) (*core.ResultSet, error) {
	seq := o.seq.Add(1)
	return o.execute(ctx, seq, query, filters, sctx)
}

// Submit schedules a query from a typing stream. Successive calls within the
// debounce window replace each other; only the last one is dispatched. The
// outcome is observable through the realtime hub and Last().
func (o *Orchestrator) Submit(query string, filters core.SearchFilters, sctx core.SearchContext) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	gen := o.gen
	o.pending = pendingQuery{query: query, filters: filters, sctx: sctx}
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(o.debounce, func() { o.fire(gen) })
}

// SetDebounce changes the debounce window for subsequent Submits. Used by
// the serve command's config reload.
func (o *Orchestrator) SetDebounce(d time.Duration) {
	if d <= 0 {
		return
	}
	o.mu.Lock()
	o.debounce = d
	o.mu.Unlock()
}

func (o *Orchestrator) fire(gen uint64) {
	o.mu.Lock()
	if gen != o.gen {
		// A newer Submit restarted the window.
		o.mu.Unlock()
		return
	}
	p := o.pending
	budget := o.remoteTimeout + o.debounce
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()
	if _, err := o.Search(ctx, p.query, p.filters, p.sctx); err != nil {
		o.logger.Warnf("submitted query %q failed: %v", p.query, err)
	}
}

func (o *Orchestrator) execute(ctx context.Context, seq uint64, query string, filters core.SearchFilters, sctx core.SearchContext) (*core.ResultSet, error) {
	start := time.Now()

	if core.NormalizeQuery(query) == "" {
		set := &core.ResultSet{Query: query, Results: []core.SearchResult{}, Seq: seq, Took: time.Since(start)}
		o.apply(set)
		return set, nil
	}

	var (
		results   []core.SearchResult
		offline   bool
		savedAt   time.Time
		remoteErr error
	)

	if o.online() {
		results, remoteErr = o.remoteSearch(ctx, query, filters, sctx)
		if remoteErr != nil {
			o.logger.Warnf("remote search for %q failed, trying cache: %v", query, remoteErr)
		}
	} else {
		remoteErr = fmt.Errorf("%w: connectivity reports offline", remote.ErrRemoteUnavailable)
	}

	if remoteErr != nil {
		cached, err := o.index.GetCached(query, filters)
		if err != nil {
			o.logger.Errorf("offline cache lookup for %q failed: %v", query, err)
		}
		if cached == nil {
			return o.Last(), fmt.Errorf("%w: %v", ErrSearchUnavailable, remoteErr)
		}
		results = cached.Results
		offline = true
		savedAt = cached.SavedAt
	}

	results = rank.Rank(filter.Apply(results, filters, sctx), sctx)

	set := &core.ResultSet{
		Query:   query,
		Results: results,
		Offline: offline,
		SavedAt: savedAt,
		Seq:     seq,
		Took:    time.Since(start),
	}
	o.apply(set)
	return set, nil
}

// remoteSearch serves from the in-memory memo when it can, otherwise does a
// bounded round trip. Either way the outcome counts as a successful search,
// so it is persisted: a memo hit still lands in history and still bumps the
// suggestion frequency.
func (o *Orchestrator) remoteSearch(ctx context.Context, query string, filters core.SearchFilters, sctx core.SearchContext) ([]core.SearchResult, error) {
	key := core.CacheKey(query, filters)
	if v, ok := o.memo.Get(key); ok {
		results := v.([]core.SearchResult)
		o.persist(query, filters, results)
		return results, nil
	}

	rctx, cancel := context.WithTimeout(ctx, o.remoteTimeout)
	defer cancel()
	results, err := o.remote.Search(rctx, query, filters, sctx)
	if err != nil {
		return nil, err
	}

	o.memo.Set(key, results, gocache.DefaultExpiration)
	o.persist(query, filters, results)
	return results, nil
}

// persist records a successful remote search: results into the offline cache,
// the query into history and the suggestion frequency table. Failures are
// logged and do not affect the search outcome.
func (o *Orchestrator) persist(query string, filters core.SearchFilters, results []core.SearchResult) {
	if err := o.index.PutCached(query, filters, results); err != nil {
		o.logger.Errorf("caching results for %q failed: %v", query, err)
	}
	if err := o.index.AddHistory(query); err != nil {
		o.logger.Errorf("recording history for %q failed: %v", query, err)
	}
	if err := o.index.BumpSuggestion(query); err != nil {
		o.logger.Errorf("bumping suggestion count for %q failed: %v", query, err)
	}
}

// apply installs the set as the latest answer unless a newer one already won,
// then publishes it. The winner is decided and recorded under one lock
// acquisition so a late response can never overwrite a newer applied set.
// Returns whether the set was applied.
func (o *Orchestrator) apply(set *core.ResultSet) bool {
	o.mu.Lock()
	if set.Seq <= o.appliedSeq {
		applied := o.appliedSeq
		o.mu.Unlock()
		o.logger.Debugf("dropping stale result set seq=%d applied=%d", set.Seq, applied)
		return false
	}
	o.appliedSeq = set.Seq
	o.last = set
	if o.hub != nil {
		// Published while still holding the lock so listeners observe
		// sets in applied order. The hub never blocks on a listener.
		o.hub.PublishResults(set)
	}
	o.mu.Unlock()
	return true
}

func (o *Orchestrator) online() bool {
	return o.conn == nil || o.conn.Online()
}

// Last returns the most recently applied result set, or nil if no query has
// completed yet.
func (o *Orchestrator) Last() *core.ResultSet {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Close cancels any pending debounced query.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}
