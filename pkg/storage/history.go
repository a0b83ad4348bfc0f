package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/buildsight/fieldsearch/pkg/core"
)

// AddHistory remembers a query. Queries that normalize to the same string
// collapse into one entry with the most recent timestamp and casing; the
// store then evicts the oldest entries beyond the configured capacity.
// Blank queries are ignored.
func (s *Store) AddHistory(query string) error {
	normalized := core.NormalizeQuery(query)
	if normalized == "" {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				logger.Warnf("rolling back history add: %v", err)
			}
		}
	}()

	now := time.Now().UTC().Format(timeLayout)

	_, err = tx.Exec(`
		INSERT INTO search_history (normalized, query, searched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(normalized) DO UPDATE SET
			query = excluded.query,
			searched_at = excluded.searched_at
	`, normalized, query, now)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}

	_, err = tx.Exec(`
		DELETE FROM search_history WHERE normalized IN (
			SELECT normalized FROM search_history
			ORDER BY searched_at DESC
			LIMIT -1 OFFSET ?
		)
	`, s.historyCapacity)
	if err != nil {
		return fmt.Errorf("evicting history entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history add: %w", err)
	}
	committed = true
	return nil
}

// RecentHistory returns up to n entries, most recent first.
func (s *Store) RecentHistory(n int) ([]core.HistoryEntry, error) {
	if n <= 0 {
		n = s.historyCapacity
	}

	rows, err := s.db.Query(`
		SELECT query, searched_at FROM search_history
		ORDER BY searched_at DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warnf("closing rows: %v", err)
		}
	}()

	var entries []core.HistoryEntry
	for rows.Next() {
		var query, searchedAt string
		if err := rows.Scan(&query, &searchedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, searchedAt)
		if err != nil {
			logger.Warnf("unparseable history timestamp %q, skipping entry", searchedAt)
			continue
		}
		entries = append(entries, core.HistoryEntry{Query: query, Timestamp: ts})
	}

	return entries, rows.Err()
}

// ClearHistory removes every remembered query.
func (s *Store) ClearHistory() error {
	if _, err := s.db.Exec("DELETE FROM search_history"); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// BumpSuggestion increments the issue counter for a query. Counts feed
// the history suggestion source's weighting.
func (s *Store) BumpSuggestion(query string) error {
	normalized := core.NormalizeQuery(query)
	if normalized == "" {
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO suggestion_counts (normalized, query, count)
		VALUES (?, ?, 1)
		ON CONFLICT(normalized) DO UPDATE SET
			query = excluded.query,
			count = suggestion_counts.count + 1
	`, normalized, query)
	if err != nil {
		return fmt.Errorf("bumping suggestion count: %w", err)
	}
	return nil
}

// SuggestionCount returns how many times a query has been issued.
func (s *Store) SuggestionCount(query string) (int, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT count FROM suggestion_counts WHERE normalized = ?",
		core.NormalizeQuery(query),
	).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying suggestion count: %w", err)
	}
	return n, nil
}
