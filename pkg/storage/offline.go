package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/buildsight/fieldsearch/pkg/core"
)

// CachedResults is an offline cache hit: the result set exactly as it was
// returned by the remote service, plus when it was saved.
type CachedResults struct {
	Query   string
	Results []core.SearchResult
	SavedAt time.Time
}

// PutCached stores a result set under the (query, filters) cache key,
// evicting least-recently-used entries when the cache is at capacity.
func (s *Store) PutCached(query string, filters core.SearchFilters, results []core.SearchResult) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshaling results for %q: %w", query, err)
	}
	compressed := s.encoder.EncodeAll(payload, nil)

	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return fmt.Errorf("marshaling filters for %q: %w", query, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				logger.Warnf("rolling back cache put: %v", err)
			}
		}
	}()

	now := time.Now().UTC().Format(timeLayout)
	key := core.CacheKey(query, filters)

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO cached_queries
			(cache_key, query, filters, results, result_count, saved_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, key, query, string(filtersJSON), compressed, len(results), now, now)
	if err != nil {
		return fmt.Errorf("inserting cached query %q: %w", query, err)
	}

	// Evict beyond capacity, least recently used first. The row just
	// written has the newest last_used_at so it always survives.
	_, err = tx.Exec(`
		DELETE FROM cached_queries WHERE cache_key IN (
			SELECT cache_key FROM cached_queries
			ORDER BY last_used_at DESC
			LIMIT -1 OFFSET ?
		)
	`, s.cacheCapacity)
	if err != nil {
		return fmt.Errorf("evicting cache entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache put: %w", err)
	}
	committed = true
	return nil
}

// GetCached looks up a previously cached result set. A miss returns
// (nil, nil). A corrupt row is logged, removed, and reported as a miss;
// a damaged cache must never fail a search.
func (s *Store) GetCached(query string, filters core.SearchFilters) (*CachedResults, error) {
	key := core.CacheKey(query, filters)

	var storedQuery, savedAtStr string
	var compressed []byte
	err := s.db.QueryRow(`
		SELECT query, results, saved_at FROM cached_queries WHERE cache_key = ?
	`, key).Scan(&storedQuery, &compressed, &savedAtStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying cache: %w", err)
	}

	payload, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		s.dropCorrupt(key, fmt.Errorf("decompressing: %w", err))
		return nil, nil
	}

	var results []core.SearchResult
	if err := json.Unmarshal(payload, &results); err != nil {
		s.dropCorrupt(key, fmt.Errorf("decoding: %w", err))
		return nil, nil
	}

	savedAt, err := time.Parse(time.RFC3339, savedAtStr)
	if err != nil {
		savedAt = time.Time{}
	}

	if _, err := s.db.Exec(
		"UPDATE cached_queries SET last_used_at = ? WHERE cache_key = ?",
		time.Now().UTC().Format(timeLayout), key,
	); err != nil {
		logger.Warnf("bumping cache entry: %v", err)
	}

	return &CachedResults{
		Query:   storedQuery,
		Results: results,
		SavedAt: savedAt,
	}, nil
}

// dropCorrupt removes an unreadable cache row so it cannot fail again.
func (s *Store) dropCorrupt(key string, cause error) {
	logger.Warnf("corrupt cache entry %s, treating as miss: %v", key, cause)
	if _, err := s.db.Exec("DELETE FROM cached_queries WHERE cache_key = ?", key); err != nil {
		logger.Warnf("removing corrupt cache entry: %v", err)
	}
}

// CachedQueryCount returns the number of cached result sets.
func (s *Store) CachedQueryCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM cached_queries").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cached queries: %w", err)
	}
	return n, nil
}
