package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/buildsight/fieldsearch/pkg/core"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "search.db"), opts...)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("closing store: %v", err)
		}
	})
	return store
}

func sampleResults(n int) []core.SearchResult {
	results := make([]core.SearchResult, n)
	for i := range results {
		results[i] = core.SearchResult{
			ID:         string(rune('a' + i)),
			EntityType: core.EntityProject,
			Title:      "Project " + string(rune('A'+i)),
			Metadata: core.ProjectMetadata{
				Stage:            "construction",
				ComplianceRating: core.ComplianceGreen,
			},
			RelevanceScore: 0.5,
		}
	}
	return results
}

func TestCacheRoundTrip(t *testing.T) {
	store := newTestStore(t)
	filters := core.SearchFilters{EntityTypes: []core.EntityType{core.EntityProject}}
	results := sampleResults(3)

	if err := store.PutCached("hospital", filters, results); err != nil {
		t.Fatalf("putting cache entry: %v", err)
	}

	hit, err := store.GetCached("hospital", filters)
	if err != nil {
		t.Fatalf("getting cache entry: %v", err)
	}
	if hit == nil {
		t.Fatal("expected a cache hit")
	}
	if len(hit.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(hit.Results))
	}
	if hit.Results[0].Title != "Project A" {
		t.Errorf("unexpected first result %q", hit.Results[0].Title)
	}
	if _, ok := hit.Results[0].Metadata.(core.ProjectMetadata); !ok {
		t.Errorf("metadata variant lost in cache round trip: %T", hit.Results[0].Metadata)
	}
	if hit.SavedAt.IsZero() {
		t.Error("expected a save timestamp")
	}
}

func TestCacheKeyIncludesFilters(t *testing.T) {
	store := newTestStore(t)
	results := sampleResults(1)

	if err := store.PutCached("hospital", core.SearchFilters{}, results); err != nil {
		t.Fatalf("putting cache entry: %v", err)
	}

	hit, err := store.GetCached("hospital", core.SearchFilters{ComplianceRating: core.ComplianceRed})
	if err != nil {
		t.Fatalf("getting cache entry: %v", err)
	}
	if hit != nil {
		t.Error("different filters must not share a cache entry")
	}

	// Case and whitespace variants of the query do share one.
	hit, err = store.GetCached("  HOSPITAL ", core.SearchFilters{})
	if err != nil {
		t.Fatalf("getting cache entry: %v", err)
	}
	if hit == nil {
		t.Error("normalized query variants should hit the same entry")
	}
}

func TestCacheMiss(t *testing.T) {
	store := newTestStore(t)

	hit, err := store.GetCached("never seen", core.SearchFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit != nil {
		t.Error("expected a miss")
	}
}

func TestCacheLRUEviction(t *testing.T) {
	store := newTestStore(t, WithCacheCapacity(3))
	results := sampleResults(1)

	queries := []string{"first", "second", "third"}
	for _, q := range queries {
		if err := store.PutCached(q, core.SearchFilters{}, results); err != nil {
			t.Fatalf("putting %q: %v", q, err)
		}
		// Force distinct last_used_at values.
		time.Sleep(5 * time.Millisecond)
	}

	// Touch "first" so "second" becomes least recently used.
	if _, err := store.GetCached("first", core.SearchFilters{}); err != nil {
		t.Fatalf("touching first: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if err := store.PutCached("fourth", core.SearchFilters{}, results); err != nil {
		t.Fatalf("putting fourth: %v", err)
	}

	count, err := store.CachedQueryCount()
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected capacity 3 after eviction, got %d", count)
	}

	evicted, err := store.GetCached("second", core.SearchFilters{})
	if err != nil {
		t.Fatalf("getting second: %v", err)
	}
	if evicted != nil {
		t.Error("least recently used entry should have been evicted")
	}

	kept, err := store.GetCached("first", core.SearchFilters{})
	if err != nil {
		t.Fatalf("getting first: %v", err)
	}
	if kept == nil {
		t.Error("recently used entry should have survived eviction")
	}
}

func TestCorruptCacheEntryIsAMiss(t *testing.T) {
	store := newTestStore(t)
	filters := core.SearchFilters{}

	if err := store.PutCached("hospital", filters, sampleResults(2)); err != nil {
		t.Fatalf("putting cache entry: %v", err)
	}

	// Corrupt the stored payload directly.
	key := core.CacheKey("hospital", filters)
	if _, err := store.db.Exec(
		"UPDATE cached_queries SET results = ? WHERE cache_key = ?",
		[]byte("not zstd data"), key,
	); err != nil {
		t.Fatalf("corrupting entry: %v", err)
	}

	hit, err := store.GetCached("hospital", filters)
	if err != nil {
		t.Fatalf("corrupt entries must not surface errors: %v", err)
	}
	if hit != nil {
		t.Error("corrupt entry should read as a miss")
	}

	// The corrupt row is gone; a rewrite works again.
	if err := store.PutCached("hospital", filters, sampleResults(1)); err != nil {
		t.Fatalf("rewriting after corruption: %v", err)
	}
	hit, err = store.GetCached("hospital", filters)
	if err != nil || hit == nil {
		t.Fatalf("expected hit after rewrite, got %v, %v", hit, err)
	}
}

func TestPruneCache(t *testing.T) {
	store := newTestStore(t)
	if err := store.PutCached("old query", core.SearchFilters{}, sampleResults(1)); err != nil {
		t.Fatalf("putting cache entry: %v", err)
	}

	removed, err := store.PruneCache(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("pruning: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned row, got %d", removed)
	}

	count, err := store.CachedQueryCount()
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty cache after prune, got %d", count)
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	if err := store.PutCached("q", core.SearchFilters{}, sampleResults(1)); err != nil {
		t.Fatalf("putting cache entry: %v", err)
	}
	if err := store.AddHistory("q"); err != nil {
		t.Fatalf("adding history: %v", err)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("getting stats: %v", err)
	}
	if stats["cached_queries"] != 1 {
		t.Errorf("expected 1 cached query, got %v", stats["cached_queries"])
	}
	if stats["history_entries"] != 1 {
		t.Errorf("expected 1 history entry, got %v", stats["history_entries"])
	}
}
