// Package storage is the durable local store behind the offline search
// path: cached result sets, query history, and suggestion frequency
// counts, all in a single sqlite database that survives restarts.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/buildsight/fieldsearch/pkg/db"
	"github.com/buildsight/fieldsearch/pkg/log"
)

var logger = log.ForComponent("storage")

// timeLayout is fixed-width so stored timestamps order lexicographically,
// which the LRU and history eviction queries rely on.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store owns the local search database. Safe for concurrent use; all
// mutations are single-statement or transactional.
type Store struct {
	db              *sql.DB
	cacheCapacity   int
	historyCapacity int
	encoder         *zstd.Encoder
	decoder         *zstd.Decoder
}

// Option tweaks store construction.
type Option func(*Store)

// WithCacheCapacity bounds the offline cache to n result sets (LRU).
func WithCacheCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.cacheCapacity = n
		}
	}
}

// WithHistoryCapacity bounds the history to n entries (oldest evicted).
func WithHistoryCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyCapacity = n
		}
	}
}

// NewStore opens (creating if necessary) the search database at dbPath
// and brings its schema up to date.
func NewStore(dbPath string, opts ...Option) (*Store, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := db.NewManager(sqlDB).ApplyPending(); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	store := &Store{
		db:              sqlDB,
		cacheCapacity:   100,
		historyCapacity: 20,
		encoder:         encoder,
		decoder:         decoder,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

func (s *Store) Close() error {
	s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}

// Stats returns row counts for diagnostics and the stats endpoints.
func (s *Store) Stats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	counts := map[string]string{
		"cached_queries":    "SELECT COUNT(*) FROM cached_queries",
		"history_entries":   "SELECT COUNT(*) FROM search_history",
		"suggestion_counts": "SELECT COUNT(*) FROM suggestion_counts",
	}
	for key, query := range counts {
		var n int
		if err := s.db.QueryRow(query).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", key, err)
		}
		stats[key] = n
	}

	var oldest, newest sql.NullString
	err := s.db.QueryRow("SELECT MIN(saved_at), MAX(saved_at) FROM cached_queries").Scan(&oldest, &newest)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("getting cache age range: %w", err)
	}
	if oldest.Valid {
		if t, err := time.Parse(time.RFC3339, oldest.String); err == nil {
			stats["oldest_cached"] = t
		}
	}
	if newest.Valid {
		if t, err := time.Parse(time.RFC3339, newest.String); err == nil {
			stats["newest_cached"] = t
		}
	}

	return stats, nil
}

// Optimize runs sqlite's statistics refresh. Called periodically by the
// serve maintenance loop and by the optimize command.
func (s *Store) Optimize() error {
	_, err := s.db.Exec("PRAGMA optimize")
	return err
}

func (s *Store) Vacuum() error {
	_, err := s.db.Exec("VACUUM")
	return err
}

func (s *Store) WALCheckpoint() error {
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// PruneCache drops cached result sets not used since the cutoff. Returns
// the number of rows removed.
func (s *Store) PruneCache(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(
		"DELETE FROM cached_queries WHERE last_used_at < ?",
		olderThan.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return res.RowsAffected()
}
