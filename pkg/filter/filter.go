// Package filter applies structured multi-entity filters to a candidate
// result set. Filtering is pure, deterministic, and order-preserving:
// ordering is the ranking engine's job.
package filter

import (
	"github.com/buildsight/fieldsearch/pkg/core"
	"github.com/buildsight/fieldsearch/pkg/geo"
)

// Apply returns the results that survive every active filter, in their
// original order. The input slice is never modified.
//
// Rules:
//   - An empty EntityTypes filter keeps every type.
//   - Scalar filters judge only the entity family that defines the field;
//     results of other families pass that filter untouched.
//   - Range filters are inclusive; a result missing the relevant field is
//     excluded while the filter is active, since membership cannot be proven.
//   - The distance filter needs the caller location and the result location;
//     a result missing either, or with an invalid coordinate, is excluded.
//   - The tag filter keeps a result when its tags intersect the filter tags
//     (OR semantics: selecting more tags widens recall, it never narrows it).
func Apply(results []core.SearchResult, filters core.SearchFilters, sctx core.SearchContext) []core.SearchResult {
	if filters.IsZero() {
		out := make([]core.SearchResult, len(results))
		copy(out, results)
		return out
	}

	out := make([]core.SearchResult, 0, len(results))
	for _, r := range results {
		if keep(r, filters, sctx) {
			out = append(out, r)
		}
	}
	return out
}

func keep(r core.SearchResult, f core.SearchFilters, sctx core.SearchContext) bool {
	if !f.AllowsType(r.EntityType) {
		return false
	}
	if !matchesScalars(r, f) {
		return false
	}
	if !matchesCommon(r, f) {
		return false
	}
	if f.DistanceKm > 0 && !withinDistance(r, f.DistanceKm, sctx) {
		return false
	}
	return true
}

// matchesScalars applies the per-family scalar and value filters. The
// metadata tagged union means a filter for one family can never reject a
// result of another: the type switch only inspects fields the family has.
func matchesScalars(r core.SearchResult, f core.SearchFilters) bool {
	switch m := r.Metadata.(type) {
	case core.ProjectMetadata:
		if f.ProjectStage != "" && m.Stage != f.ProjectStage {
			return false
		}
		if f.ComplianceRating != "" && m.ComplianceRating != f.ComplianceRating {
			return false
		}
		if f.EBAStatus != "" && m.EBAStatus != f.EBAStatus {
			return false
		}
		if f.ValueRange.Active() && (m.Value == 0 || !f.ValueRange.Contains(m.Value)) {
			return false
		}
	case core.EmployerMetadata:
		if f.EBAStatus != "" && m.EBAStatus != f.EBAStatus {
			return false
		}
		if f.ValueRange.Active() {
			return false
		}
	case core.WorkerMetadata:
		if f.UnionStatus != "" && m.UnionStatus != f.UnionStatus {
			return false
		}
		if f.ValueRange.Active() {
			return false
		}
	default:
		// No metadata: scalar filters for specific families cannot
		// exclude it, but active range filters can (membership
		// unprovable).
		if f.ValueRange.Active() {
			return false
		}
		if r.EntityType == core.EntityProject && (f.ProjectStage != "" || f.ComplianceRating != "" || f.EBAStatus != "") {
			return false
		}
		if r.EntityType == core.EntityEmployer && f.EBAStatus != "" {
			return false
		}
		if r.EntityType == core.EntityWorker && f.UnionStatus != "" {
			return false
		}
	}
	return true
}

func matchesCommon(r core.SearchResult, f core.SearchFilters) bool {
	var common core.CommonMetadata
	if r.Metadata != nil {
		common = r.Metadata.Common()
	}

	if f.Priority != "" {
		if r.Metadata == nil || common.Priority != f.Priority {
			return false
		}
	}
	if f.DateRange.Active() {
		if r.Metadata == nil || common.LastUpdated.IsZero() || !f.DateRange.Contains(common.LastUpdated) {
			return false
		}
	}
	if len(f.Tags) > 0 && !tagsIntersect(common.Tags, f.Tags) {
		return false
	}
	return true
}

func tagsIntersect(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

func withinDistance(r core.SearchResult, maxKm float64, sctx core.SearchContext) bool {
	if sctx.Location == nil || r.Location == nil {
		return false
	}
	d, err := geo.Distance(*sctx.Location, *r.Location)
	if err != nil {
		// Invalid coordinate is fatal to this one computation only;
		// the result drops out of the geo filter.
		return false
	}
	return d <= maxKm
}
