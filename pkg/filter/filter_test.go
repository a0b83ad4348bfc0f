package filter

import (
	"reflect"
	"testing"
	"time"

	"github.com/buildsight/fieldsearch/pkg/core"
)

func project(id, stage string, rating core.ComplianceRating, tags ...string) core.SearchResult {
	return core.SearchResult{
		ID:         id,
		EntityType: core.EntityProject,
		Title:      id,
		Metadata: core.ProjectMetadata{
			Stage:            stage,
			ComplianceRating: rating,
			CommonMetadata:   core.CommonMetadata{Tags: tags},
		},
		RelevanceScore: 0.5,
	}
}

func worker(id, unionStatus string) core.SearchResult {
	return core.SearchResult{
		ID:             id,
		EntityType:     core.EntityWorker,
		Title:          id,
		Metadata:       core.WorkerMetadata{UnionStatus: unionStatus},
		RelevanceScore: 0.5,
	}
}

func ids(results []core.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestApplyEmptyEntityTypesKeepsEveryType(t *testing.T) {
	results := []core.SearchResult{
		project("p1", "construction", core.ComplianceGreen),
		worker("w1", "member"),
		{ID: "s1", EntityType: core.EntitySite, Metadata: core.SiteMetadata{}},
		{ID: "e1", EntityType: core.EntityEmployer, Metadata: core.EmployerMetadata{}},
	}

	got := Apply(results, core.SearchFilters{}, core.SearchContext{})
	if len(got) != len(results) {
		t.Fatalf("empty filters must keep everything, kept %v", ids(got))
	}
}

func TestApplyEntityTypeFilter(t *testing.T) {
	results := []core.SearchResult{
		project("p1", "construction", core.ComplianceGreen),
		worker("w1", "member"),
	}

	got := Apply(results, core.SearchFilters{EntityTypes: []core.EntityType{core.EntityWorker}}, core.SearchContext{})
	if !reflect.DeepEqual(ids(got), []string{"w1"}) {
		t.Errorf("expected only w1, got %v", ids(got))
	}
}

func TestApplyScalarFilterIgnoresOtherFamilies(t *testing.T) {
	// A worker must never be excluded by a project-only filter.
	results := []core.SearchResult{
		project("p-green", "construction", core.ComplianceGreen),
		project("p-red", "construction", core.ComplianceRed),
		worker("w1", "member"),
	}

	got := Apply(results, core.SearchFilters{ComplianceRating: core.ComplianceRed}, core.SearchContext{})
	if !reflect.DeepEqual(ids(got), []string{"p-red", "w1"}) {
		t.Errorf("expected [p-red w1], got %v", ids(got))
	}
}

func TestApplyHospitalScenario(t *testing.T) {
	results := []core.SearchResult{
		project("hospital-red", "construction", core.ComplianceRed),
		project("hospital-green", "construction", core.ComplianceGreen),
		worker("hospital-worker", "member"),
	}
	filters := core.SearchFilters{
		EntityTypes:      []core.EntityType{core.EntityProject},
		ComplianceRating: core.ComplianceRed,
	}

	got := Apply(results, filters, core.SearchContext{})
	if !reflect.DeepEqual(ids(got), []string{"hospital-red"}) {
		t.Errorf("expected only the red project, got %v", ids(got))
	}
}

func TestApplyTagFilterORSemantics(t *testing.T) {
	results := []core.SearchResult{
		project("p1", "construction", "", "Residential", "Private"),
		project("p2", "construction", "", "Commercial"),
	}

	got := Apply(results, core.SearchFilters{Tags: []string{"Residential"}}, core.SearchContext{})
	if !reflect.DeepEqual(ids(got), []string{"p1"}) {
		t.Errorf("expected intersection semantics to keep only p1, got %v", ids(got))
	}

	// A result matching any selected tag survives.
	got = Apply(results, core.SearchFilters{Tags: []string{"Residential", "Commercial"}}, core.SearchContext{})
	if !reflect.DeepEqual(ids(got), []string{"p1", "p2"}) {
		t.Errorf("expected OR semantics to keep both, got %v", ids(got))
	}
}

func TestApplyDateRangeExcludesMissingField(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	inRange := project("p1", "construction", "")
	meta := inRange.Metadata.(core.ProjectMetadata)
	meta.LastUpdated = updated
	inRange.Metadata = meta

	noTimestamp := project("p2", "construction", "")

	got := Apply(
		[]core.SearchResult{inRange, noTimestamp},
		core.SearchFilters{DateRange: core.DateRange{Start: &start}},
		core.SearchContext{},
	)
	if !reflect.DeepEqual(ids(got), []string{"p1"}) {
		t.Errorf("a result without a timestamp cannot prove membership, got %v", ids(got))
	}
}

func TestApplyValueRange(t *testing.T) {
	min := 1000000.0

	valued := project("p1", "construction", "")
	meta := valued.Metadata.(core.ProjectMetadata)
	meta.Value = 5000000
	valued.Metadata = meta

	results := []core.SearchResult{
		valued,
		project("p2", "construction", ""), // no value recorded
		worker("w1", "member"),            // family has no value field
	}

	got := Apply(results, core.SearchFilters{ValueRange: core.ValueRange{Min: &min}}, core.SearchContext{})
	if !reflect.DeepEqual(ids(got), []string{"p1"}) {
		t.Errorf("expected only the valued project, got %v", ids(got))
	}
}

func TestApplyDistanceFilter(t *testing.T) {
	sydney := core.Coordinates{Latitude: -33.8688, Longitude: 151.2093}
	parramatta := core.Coordinates{Latitude: -33.8150, Longitude: 151.0011}
	melbourne := core.Coordinates{Latitude: -37.8136, Longitude: 144.9631}

	near := project("near", "construction", "")
	near.Location = &parramatta
	far := project("far", "construction", "")
	far.Location = &melbourne
	unlocated := project("unlocated", "construction", "")

	results := []core.SearchResult{near, far, unlocated}
	filters := core.SearchFilters{DistanceKm: 50}

	got := Apply(results, filters, core.SearchContext{Location: &sydney})
	if !reflect.DeepEqual(ids(got), []string{"near"}) {
		t.Errorf("expected only the nearby project, got %v", ids(got))
	}

	// Without a caller location nothing can prove proximity.
	got = Apply(results, filters, core.SearchContext{})
	if len(got) != 0 {
		t.Errorf("expected no results without caller location, got %v", ids(got))
	}
}

func TestApplyIdempotent(t *testing.T) {
	results := []core.SearchResult{
		project("p1", "construction", core.ComplianceRed, "Residential"),
		project("p2", "planning", core.ComplianceGreen),
		worker("w1", "member"),
	}
	filters := core.SearchFilters{
		EntityTypes: []core.EntityType{core.EntityProject},
		Tags:        []string{"Residential"},
	}
	sctx := core.SearchContext{}

	once := Apply(results, filters, sctx)
	twice := Apply(once, filters, sctx)
	if !reflect.DeepEqual(ids(once), ids(twice)) {
		t.Errorf("apply should be idempotent: %v vs %v", ids(once), ids(twice))
	}
}

func TestApplyPreservesOrderAndInput(t *testing.T) {
	results := []core.SearchResult{
		project("c", "construction", ""),
		project("a", "construction", ""),
		project("b", "planning", ""),
	}

	got := Apply(results, core.SearchFilters{ProjectStage: "construction"}, core.SearchContext{})
	if !reflect.DeepEqual(ids(got), []string{"c", "a"}) {
		t.Errorf("filtering must preserve arrival order, got %v", ids(got))
	}
	if !reflect.DeepEqual(ids(results), []string{"c", "a", "b"}) {
		t.Errorf("input slice must not be modified, got %v", ids(results))
	}
}
