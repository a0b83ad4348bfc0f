// Package core defines the domain model shared by every fieldsearch
// component: searchable entities, their per-type metadata, structured
// filters, and the caller context that accompanies each query.
package core

import (
	"fmt"
	"time"
)

// EntityType identifies one of the searchable domain classes.
type EntityType string

const (
	EntityProject  EntityType = "project"
	EntityEmployer EntityType = "employer"
	EntityWorker   EntityType = "worker"
	EntitySite     EntityType = "site"
)

// AllEntityTypes lists every known entity type in display order.
func AllEntityTypes() []EntityType {
	return []EntityType{EntityProject, EntityEmployer, EntityWorker, EntitySite}
}

// ParseEntityType validates a string against the closed entity type set.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityProject, EntityEmployer, EntityWorker, EntitySite:
		return EntityType(s), nil
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// ComplianceRating is the traffic-light compliance state carried by projects.
type ComplianceRating string

const (
	ComplianceGreen ComplianceRating = "green"
	ComplianceAmber ComplianceRating = "amber"
	ComplianceRed   ComplianceRating = "red"
)

// Role is the caller's role in the organising hierarchy. Roles influence
// contextual suggestions only; they never restrict search results.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleLeadOrganiser Role = "lead_organiser"
	RoleOrganiser     Role = "organiser"
	RoleDelegate      Role = "delegate"
	RoleViewer        Role = "viewer"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SearchContext carries caller-supplied state into a search. It is treated
// as immutable by every component; the core never mutates it and never
// reads ambient globals in its place.
type SearchContext struct {
	// Role of the caller; used by contextual suggestion sources.
	Role Role

	// Location is the caller's current position, if known. Enables
	// distance filtering and distance tie-breaking in ranking.
	Location *Coordinates

	// Patches are the geographic patch identifiers assigned to the
	// caller, if any.
	Patches []string
}

// HistoryEntry is a single remembered query.
type HistoryEntry struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// SuggestionSource identifies where a suggestion candidate came from.
// Source order doubles as merge priority: earlier sources win ties.
type SuggestionSource int

const (
	SourceHistory SuggestionSource = iota
	SourceTrending
	SourceContextual
	SourceLocation
)

func (s SuggestionSource) String() string {
	switch s {
	case SourceHistory:
		return "history"
	case SourceTrending:
		return "trending"
	case SourceContextual:
		return "contextual"
	case SourceLocation:
		return "location"
	}
	return "unknown"
}

// Suggestion is a weighted candidate string produced by a suggestion source.
type Suggestion struct {
	Text   string           `json:"text"`
	Source SuggestionSource `json:"source"`
	Weight float64          `json:"weight"`
}
