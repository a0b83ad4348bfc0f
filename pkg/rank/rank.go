// Package rank orders filtered results into the sequence shown to the
// user. The comparator is a static weighted ordering, not a learned
// model: relevance scores are opaque values supplied upstream, this
// package only orders what it receives.
package rank

import (
	"sort"

	"github.com/buildsight/fieldsearch/pkg/core"
	"github.com/buildsight/fieldsearch/pkg/geo"
)

// Rank returns a new slice ordered by relevance score descending, then
// by distance to the caller ascending when both locations are known,
// then by original arrival order. The same input multiset and context
// always produce the same output sequence.
func Rank(results []core.SearchResult, sctx core.SearchContext) []core.SearchResult {
	out := make([]core.SearchResult, len(results))
	copy(out, results)

	distances := distancesFrom(out, sctx)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RelevanceScore != out[j].RelevanceScore {
			return out[i].RelevanceScore > out[j].RelevanceScore
		}
		di, okI := distances[out[i].Key()]
		dj, okJ := distances[out[j].Key()]
		switch {
		case okI && okJ:
			return di < dj
		case okI:
			// At equal relevance a result with a known distance
			// outranks one without.
			return true
		default:
			return false
		}
	})

	return out
}

// distancesFrom precomputes the caller distance for every result that has
// one. Results with missing or invalid coordinates simply have no entry;
// they keep their relevance-only ordering.
func distancesFrom(results []core.SearchResult, sctx core.SearchContext) map[string]float64 {
	if sctx.Location == nil {
		return nil
	}
	distances := make(map[string]float64, len(results))
	for _, r := range results {
		if r.Location == nil {
			continue
		}
		d, err := geo.Distance(*sctx.Location, *r.Location)
		if err != nil {
			continue
		}
		distances[r.Key()] = d
	}
	return distances
}
