package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// DateRange is an inclusive timestamp window. Nil bounds are open.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Active reports whether the range constrains anything.
func (d DateRange) Active() bool {
	return d.Start != nil || d.End != nil
}

// Contains reports whether t falls inside the inclusive window.
func (d DateRange) Contains(t time.Time) bool {
	if d.Start != nil && t.Before(*d.Start) {
		return false
	}
	if d.End != nil && t.After(*d.End) {
		return false
	}
	return true
}

// ValueRange is an inclusive numeric window. Nil bounds are open.
type ValueRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Active reports whether the range constrains anything.
func (v ValueRange) Active() bool {
	return v.Min != nil || v.Max != nil
}

// Contains reports whether x falls inside the inclusive window.
func (v ValueRange) Contains(x float64) bool {
	if v.Min != nil && x < *v.Min {
		return false
	}
	if v.Max != nil && x > *v.Max {
		return false
	}
	return true
}

// SearchFilters is the structured filter object applied to a candidate
// result set. It is a pure value: engines read it, nothing mutates it.
//
// An empty EntityTypes slice means "no type restriction", never "match
// nothing". Scalar fields apply only to the entity family that defines
// them; a worker is never excluded by ComplianceRating.
type SearchFilters struct {
	EntityTypes []EntityType `json:"entity_types,omitempty"`

	ProjectStage     string           `json:"project_stage,omitempty"`
	ComplianceRating ComplianceRating `json:"compliance_rating,omitempty"`
	EBAStatus        string           `json:"eba_status,omitempty"`
	UnionStatus      string           `json:"union_status,omitempty"`
	Priority         string           `json:"priority,omitempty"`

	// DistanceKm restricts results to within this many kilometers of
	// the caller's location. Zero disables the filter.
	DistanceKm float64 `json:"distance_km,omitempty"`

	DateRange  DateRange  `json:"date_range,omitzero"`
	ValueRange ValueRange `json:"value_range,omitzero"`

	// Tags keeps a result when its tag set intersects this one
	// (OR semantics; see the filter engine).
	Tags []string `json:"tags,omitempty"`
}

// IsZero reports whether no filter field is set.
func (f SearchFilters) IsZero() bool {
	return len(f.EntityTypes) == 0 &&
		f.ProjectStage == "" && f.ComplianceRating == "" &&
		f.EBAStatus == "" && f.UnionStatus == "" && f.Priority == "" &&
		f.DistanceKm == 0 && !f.DateRange.Active() &&
		!f.ValueRange.Active() && len(f.Tags) == 0
}

// AllowsType reports whether the entity-type filter keeps the given type.
// An empty filter keeps everything.
func (f SearchFilters) AllowsType(t EntityType) bool {
	if len(f.EntityTypes) == 0 {
		return true
	}
	for _, et := range f.EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}

// Signature returns a stable digest of the filter set, used together with
// the normalized query as the offline cache key. Slice fields are sorted
// first so logically equal filters always produce the same signature.
func (f SearchFilters) Signature() string {
	canon := f
	if len(f.EntityTypes) > 0 {
		canon.EntityTypes = append([]EntityType(nil), f.EntityTypes...)
		sort.Slice(canon.EntityTypes, func(i, j int) bool {
			return canon.EntityTypes[i] < canon.EntityTypes[j]
		})
	}
	if len(f.Tags) > 0 {
		canon.Tags = append([]string(nil), f.Tags...)
		sort.Strings(canon.Tags)
	}
	data, err := json.Marshal(canon)
	if err != nil {
		// Marshaling a plain value struct cannot fail; keep the
		// signature total anyway.
		data = []byte(err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NormalizeQuery trims and lowercases a query for cache and history
// identity. Display code keeps the original casing.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// CacheKey derives the offline cache key for a (query, filters) pair.
func CacheKey(query string, f SearchFilters) string {
	sum := sha256.Sum256([]byte(NormalizeQuery(query) + "\x00" + f.Signature()))
	return hex.EncodeToString(sum[:])
}
