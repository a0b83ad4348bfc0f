package api

import (
	"net/url"
	"testing"
	"time"

	"github.com/buildsight/fieldsearch/pkg/core"
)

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		check   func(t *testing.T, f core.SearchFilters)
		wantErr bool
	}{
		{
			name:  "empty values parse to an empty filter",
			query: "",
			check: func(t *testing.T, f core.SearchFilters) {
				if !f.IsZero() {
					t.Errorf("expected zero filter, got %+v", f)
				}
			},
		},
		{
			name:  "comma separated entity types",
			query: "entity_type=project,site",
			check: func(t *testing.T, f core.SearchFilters) {
				if len(f.EntityTypes) != 2 || f.EntityTypes[0] != core.EntityProject || f.EntityTypes[1] != core.EntitySite {
					t.Errorf("unexpected entity types %v", f.EntityTypes)
				}
			},
		},
		{
			name:  "repeated entity type parameters",
			query: "entity_type=worker&entity_type=employer",
			check: func(t *testing.T, f core.SearchFilters) {
				if len(f.EntityTypes) != 2 {
					t.Errorf("unexpected entity types %v", f.EntityTypes)
				}
			},
		},
		{
			name:    "unknown entity type rejected",
			query:   "entity_type=vehicle",
			wantErr: true,
		},
		{
			name:  "scalar filters",
			query: "project_stage=construction&compliance_rating=red&priority=high",
			check: func(t *testing.T, f core.SearchFilters) {
				if f.ProjectStage != "construction" || f.ComplianceRating != core.ComplianceRed || f.Priority != "high" {
					t.Errorf("unexpected filter %+v", f)
				}
			},
		},
		{
			name:    "unknown compliance rating rejected",
			query:   "compliance_rating=purple",
			wantErr: true,
		},
		{
			name:  "plain end date widens to end of day",
			query: "date_to=2026-08-01",
			check: func(t *testing.T, f core.SearchFilters) {
				if f.DateRange.End == nil {
					t.Fatal("expected end bound")
				}
				if f.DateRange.End.Hour() != 23 {
					t.Errorf("expected end of day, got %v", f.DateRange.End)
				}
			},
		},
		{
			name:  "rfc3339 dates pass through",
			query: "date_from=" + url.QueryEscape(time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC).Format(time.RFC3339)),
			check: func(t *testing.T, f core.SearchFilters) {
				if f.DateRange.Start == nil || f.DateRange.Start.Hour() != 9 {
					t.Errorf("unexpected start bound %v", f.DateRange.Start)
				}
			},
		},
		{
			name:    "negative distance rejected",
			query:   "distance_km=-5",
			wantErr: true,
		},
		{
			name:  "value range and tags",
			query: "value_min=1000000&tags=healthcare,government",
			check: func(t *testing.T, f core.SearchFilters) {
				if f.ValueRange.Min == nil || *f.ValueRange.Min != 1000000 {
					t.Errorf("unexpected value range %+v", f.ValueRange)
				}
				if len(f.Tags) != 2 {
					t.Errorf("unexpected tags %v", f.Tags)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("bad test query: %v", err)
			}
			f, err := ParseFilters(values)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, f)
		})
	}
}

func TestParseContext(t *testing.T) {
	values, _ := url.ParseQuery("role=organiser&lat=-33.87&lng=151.21&patch=inner-west&patch=cbd")
	sctx, err := ParseContext(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sctx.Role != core.RoleOrganiser {
		t.Errorf("unexpected role %q", sctx.Role)
	}
	if sctx.Location == nil || sctx.Location.Latitude != -33.87 {
		t.Errorf("unexpected location %+v", sctx.Location)
	}
	if len(sctx.Patches) != 2 {
		t.Errorf("unexpected patches %v", sctx.Patches)
	}
}

func TestParseContextLatWithoutLng(t *testing.T) {
	values, _ := url.ParseQuery("lat=-33.87")
	if _, err := ParseContext(values); err == nil {
		t.Error("lat without lng should be rejected")
	}
}

func TestParseContextUnknownRole(t *testing.T) {
	values, _ := url.ParseQuery("role=superuser")
	if _, err := ParseContext(values); err == nil {
		t.Error("unknown role should be rejected")
	}
}
