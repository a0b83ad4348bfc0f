// Package suggest merges suggestion candidates from several weighted
// sources (personal history, trending queries, role phrases, location
// phrases) into one deduplicated, ranked list for the search dropdown.
package suggest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/buildsight/fieldsearch/pkg/core"
	"github.com/buildsight/fieldsearch/pkg/log"
)

var logger = log.ForComponent("suggest")

// Source produces zero or more weighted candidates for a partial query.
// Implementations must honor ctx: the aggregator abandons sources that
// outlive its deadline and proceeds with whatever completed.
type Source interface {
	Name() string
	Suggest(ctx context.Context, partial string, sctx core.SearchContext) ([]core.Suggestion, error)
}

// Aggregator fans a partial query out to its sources and merges the
// answers. Safe for concurrent use.
type Aggregator struct {
	sources []Source
	limit   int
	timeout time.Duration
}

// NewAggregator builds an aggregator over the given sources. Source
// order matters: it is the tie-break priority during merging.
func NewAggregator(limit int, timeout time.Duration, sources ...Source) *Aggregator {
	if limit <= 0 {
		limit = 8
	}
	if timeout <= 0 {
		timeout = 300 * time.Millisecond
	}
	return &Aggregator{sources: sources, limit: limit, timeout: timeout}
}

// Suggest returns at most the configured number of suggestions for a
// partial query, weight descending. A slow or failing source contributes
// nothing; it never delays the answer beyond the aggregator timeout.
func (a *Aggregator) Suggest(ctx context.Context, partial string, sctx core.SearchContext) []core.Suggestion {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type slot struct {
		suggestions []core.Suggestion
		filled      bool
	}
	var mu sync.Mutex
	slots := make([]slot, len(a.sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		g.Go(func() error {
			suggestions, err := src.Suggest(ctx, partial, sctx)
			if err != nil {
				logger.Warnf("source %s failed: %v", src.Name(), err)
				return nil
			}
			mu.Lock()
			slots[i] = slot{suggestions: suggestions, filled: true}
			mu.Unlock()
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		// Errors are swallowed above; Wait only signals completion.
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Debugf("deadline reached with sources still pending")
	}

	// Snapshot whatever completed in time; stragglers are abandoned.
	var merged []core.Suggestion
	mu.Lock()
	for _, s := range slots {
		if s.filled {
			merged = append(merged, s.suggestions...)
		}
	}
	mu.Unlock()

	return a.rank(merged)
}

// rank deduplicates case-insensitively (highest weight keeps its original
// casing), sorts by weight descending with ties broken by source priority
// then insertion order, and truncates to the limit.
func (a *Aggregator) rank(candidates []core.Suggestion) []core.Suggestion {
	type entry struct {
		suggestion core.Suggestion
		index      int
	}

	seen := make(map[string]int) // fold key -> index into kept
	var kept []entry
	for i, c := range candidates {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		c.Text = text

		key := Fold(text)
		if at, dup := seen[key]; dup {
			if betterThan(c, kept[at].suggestion) {
				kept[at] = entry{suggestion: c, index: kept[at].index}
			}
			continue
		}
		seen[key] = len(kept)
		kept = append(kept, entry{suggestion: c, index: i})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return betterOrder(kept[i].suggestion, kept[j].suggestion, kept[i].index, kept[j].index)
	})

	if len(kept) > a.limit {
		kept = kept[:a.limit]
	}
	out := make([]core.Suggestion, len(kept))
	for i, e := range kept {
		out[i] = e.suggestion
	}
	return out
}

func betterThan(a, b core.Suggestion) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	return a.Source < b.Source
}

func betterOrder(a, b core.Suggestion, ai, bi int) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return ai < bi
}

// Fold normalizes text for case-insensitive comparison. A fresh caser per
// call: cases.Caser is stateful and not safe to share across goroutines.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// matches reports whether candidate contains the partial query,
// case-folded. An empty partial matches everything.
func matches(candidate, partial string) bool {
	if strings.TrimSpace(partial) == "" {
		return true
	}
	return strings.Contains(Fold(candidate), Fold(partial))
}
