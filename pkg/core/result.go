package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// SearchResult is one matched entity. Results are constructed fresh for
// every query and never mutated in place; the filter and ranking engines
// return new slices instead of editing their input.
type SearchResult struct {
	// ID is an opaque identifier, unique within (ID, EntityType).
	ID string

	EntityType EntityType

	// Display text. Only Title participates in textual matching, and
	// that happens upstream; the core treats all three as opaque.
	Title       string
	Subtitle    string
	Description string

	// Metadata is the per-entity attribute bag. May be nil.
	Metadata Metadata

	// RelevanceScore is in [0,1], produced by the query source (remote
	// service or offline heuristic) before ranking adjustment.
	RelevanceScore float64

	// Location, when present, makes the result eligible for distance
	// filtering and distance tie-breaking.
	Location *Coordinates
}

// Key returns the identity of a result within a result set.
func (r SearchResult) Key() string {
	return string(r.EntityType) + ":" + r.ID
}

// resultWire is the serialized form of SearchResult. The metadata tagged
// union needs an envelope, so the struct cannot round-trip with plain
// struct tags alone.
type resultWire struct {
	ID             string          `json:"id"`
	EntityType     EntityType      `json:"entity_type"`
	Title          string          `json:"title"`
	Subtitle       string          `json:"subtitle,omitempty"`
	Description    string          `json:"description,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	RelevanceScore float64         `json:"relevance_score"`
	Location       *Coordinates    `json:"location,omitempty"`
}

func (r SearchResult) MarshalJSON() ([]byte, error) {
	var meta json.RawMessage
	if r.Metadata != nil {
		encoded, err := MarshalMetadata(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("result %s: %w", r.Key(), err)
		}
		meta = encoded
	}
	return json.Marshal(resultWire{
		ID:             r.ID,
		EntityType:     r.EntityType,
		Title:          r.Title,
		Subtitle:       r.Subtitle,
		Description:    r.Description,
		Metadata:       meta,
		RelevanceScore: r.RelevanceScore,
		Location:       r.Location,
	})
}

func (r *SearchResult) UnmarshalJSON(data []byte) error {
	var w resultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	meta, err := UnmarshalMetadata(w.Metadata)
	if err != nil {
		return fmt.Errorf("result %s:%s: %w", w.EntityType, w.ID, err)
	}
	*r = SearchResult{
		ID:             w.ID,
		EntityType:     w.EntityType,
		Title:          w.Title,
		Subtitle:       w.Subtitle,
		Description:    w.Description,
		Metadata:       meta,
		RelevanceScore: w.RelevanceScore,
		Location:       w.Location,
	}
	return nil
}

// ResultSet is the orchestrator's answer to a single query. An empty
// Results slice is a valid answer, not an error.
type ResultSet struct {
	// Query is the raw query text this set answers.
	Query string `json:"query"`

	Results []SearchResult `json:"results"`

	// Offline is true when the set was served from the local cache
	// rather than a live remote query. Surfaced so the UI can disclose
	// staleness.
	Offline bool `json:"offline"`

	// SavedAt is when an offline-sourced set was originally cached.
	// Zero for live results.
	SavedAt time.Time `json:"saved_at,omitzero"`

	// Seq is the orchestrator sequence number that produced this set.
	// Monotonically increasing; used by the stale-response guard.
	Seq uint64 `json:"seq"`

	// Took is how long the query path took, for diagnostics.
	Took time.Duration `json:"took"`
}
