package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected EntityType
		hasError bool
	}{
		{name: "project", input: "project", expected: EntityProject},
		{name: "employer", input: "employer", expected: EntityEmployer},
		{name: "worker", input: "worker", expected: EntityWorker},
		{name: "site", input: "site", expected: EntitySite},
		{name: "unknown", input: "vehicle", hasError: true},
		{name: "empty", input: "", hasError: true},
		{name: "case sensitive", input: "Project", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntityType(tt.input)
			if tt.hasError {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestFilterSignatureStable(t *testing.T) {
	a := SearchFilters{
		EntityTypes: []EntityType{EntityWorker, EntityProject},
		Tags:        []string{"Residential", "Commercial"},
	}
	b := SearchFilters{
		EntityTypes: []EntityType{EntityProject, EntityWorker},
		Tags:        []string{"Commercial", "Residential"},
	}

	if a.Signature() != b.Signature() {
		t.Error("logically equal filters should share a signature")
	}

	c := SearchFilters{EntityTypes: []EntityType{EntityProject}}
	if a.Signature() == c.Signature() {
		t.Error("different filters should not share a signature")
	}
}

func TestFilterSignatureDoesNotMutate(t *testing.T) {
	f := SearchFilters{
		EntityTypes: []EntityType{EntityWorker, EntityProject},
		Tags:        []string{"b", "a"},
	}
	_ = f.Signature()

	if f.EntityTypes[0] != EntityWorker || f.Tags[0] != "b" {
		t.Error("Signature must not reorder the caller's slices")
	}
}

func TestCacheKeyNormalizesQuery(t *testing.T) {
	f := SearchFilters{}
	if CacheKey("Hospital", f) != CacheKey("  hospital ", f) {
		t.Error("cache key should be insensitive to case and surrounding whitespace")
	}
	if CacheKey("hospital", f) == CacheKey("school", f) {
		t.Error("different queries should produce different cache keys")
	}
}

func TestAllowsTypeEmptyMeansEverything(t *testing.T) {
	var f SearchFilters
	for _, et := range AllEntityTypes() {
		if !f.AllowsType(et) {
			t.Errorf("empty entity type filter should allow %s", et)
		}
	}

	f.EntityTypes = []EntityType{EntityProject}
	if !f.AllowsType(EntityProject) {
		t.Error("expected project to be allowed")
	}
	if f.AllowsType(EntityWorker) {
		t.Error("expected worker to be excluded")
	}
}

func TestSearchResultJSONRoundTrip(t *testing.T) {
	updated := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	original := SearchResult{
		ID:         "p-42",
		EntityType: EntityProject,
		Title:      "Riverside Hospital Stage 2",
		Subtitle:   "Acme Constructions",
		Metadata: ProjectMetadata{
			Stage:            "construction",
			ComplianceRating: ComplianceRed,
			EBAStatus:        "active",
			Value:            12500000,
			CommonMetadata: CommonMetadata{
				Priority:    "high",
				Tags:        []string{"Residential", "Private"},
				LastUpdated: updated,
			},
		},
		RelevanceScore: 0.92,
		Location:       &Coordinates{Latitude: -33.87, Longitude: 151.21},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshaling result: %v", err)
	}

	var decoded SearchResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshaling result: %v", err)
	}

	if decoded.ID != original.ID || decoded.EntityType != original.EntityType {
		t.Errorf("identity lost in round trip: %+v", decoded)
	}
	meta, ok := decoded.Metadata.(ProjectMetadata)
	if !ok {
		t.Fatalf("expected ProjectMetadata, got %T", decoded.Metadata)
	}
	if meta.ComplianceRating != ComplianceRed {
		t.Errorf("expected red compliance, got %q", meta.ComplianceRating)
	}
	if !meta.LastUpdated.Equal(updated) {
		t.Errorf("expected last updated %v, got %v", updated, meta.LastUpdated)
	}
	if decoded.Location == nil || decoded.Location.Latitude != -33.87 {
		t.Errorf("location lost in round trip: %+v", decoded.Location)
	}
}

func TestSearchResultNilMetadata(t *testing.T) {
	original := SearchResult{ID: "s-1", EntityType: EntitySite, Title: "Depot"}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshaling result: %v", err)
	}
	var decoded SearchResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshaling result: %v", err)
	}
	if decoded.Metadata != nil {
		t.Errorf("expected nil metadata, got %T", decoded.Metadata)
	}
}

func TestMetadataVariantTypes(t *testing.T) {
	variants := []Metadata{
		ProjectMetadata{},
		EmployerMetadata{},
		WorkerMetadata{},
		SiteMetadata{},
	}
	expected := []EntityType{EntityProject, EntityEmployer, EntityWorker, EntitySite}

	for i, v := range variants {
		if v.EntityType() != expected[i] {
			t.Errorf("variant %T reports %s, expected %s", v, v.EntityType(), expected[i])
		}
	}
}

func TestDateRangeContains(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
	r := DateRange{Start: &start, End: &end}

	if !r.Contains(start) || !r.Contains(end) {
		t.Error("bounds are inclusive")
	}
	if r.Contains(start.Add(-time.Second)) {
		t.Error("before start should be outside")
	}
	if r.Contains(end.Add(time.Second)) {
		t.Error("after end should be outside")
	}
	if (DateRange{}).Active() {
		t.Error("zero range should be inactive")
	}
}
