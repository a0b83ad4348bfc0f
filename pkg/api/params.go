package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/buildsight/fieldsearch/pkg/core"
)

// ParseFilters converts HTTP query parameters into structured search filters.
// Repeatable parameters (entity_type, tags) accept both repetition and
// comma-separated values. Dates accept RFC 3339 or plain YYYY-MM-DD; a bare
// end date is widened to end of day so the inclusive window covers it.
func ParseFilters(values url.Values) (core.SearchFilters, error) {
	var f core.SearchFilters

	for _, raw := range splitMulti(values["entity_type"]) {
		et, err := core.ParseEntityType(raw)
		if err != nil {
			return f, err
		}
		f.EntityTypes = append(f.EntityTypes, et)
	}

	f.ProjectStage = values.Get("project_stage")
	f.EBAStatus = values.Get("eba_status")
	f.UnionStatus = values.Get("union_status")
	f.Priority = values.Get("priority")

	if v := values.Get("compliance_rating"); v != "" {
		switch core.ComplianceRating(v) {
		case core.ComplianceGreen, core.ComplianceAmber, core.ComplianceRed:
			f.ComplianceRating = core.ComplianceRating(v)
		default:
			return f, fmt.Errorf("unknown compliance rating %q", v)
		}
	}

	if v := values.Get("distance_km"); v != "" {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil || km < 0 {
			return f, fmt.Errorf("invalid distance_km %q", v)
		}
		f.DistanceKm = km
	}

	if v := values.Get("date_from"); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			return f, err
		}
		f.DateRange.Start = &t
	}
	if v := values.Get("date_to"); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			return f, err
		}
		f.DateRange.End = &t
	}

	if v := values.Get("value_min"); v != "" {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, fmt.Errorf("invalid value_min %q", v)
		}
		f.ValueRange.Min = &x
	}
	if v := values.Get("value_max"); v != "" {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, fmt.Errorf("invalid value_max %q", v)
		}
		f.ValueRange.Max = &x
	}

	f.Tags = splitMulti(values["tags"])

	return f, nil
}

// ParseContext extracts the caller context from query parameters. Both lat
// and lng must be present for a location to count.
func ParseContext(values url.Values) (core.SearchContext, error) {
	var sctx core.SearchContext

	if v := values.Get("role"); v != "" {
		switch core.Role(v) {
		case core.RoleAdmin, core.RoleLeadOrganiser, core.RoleOrganiser, core.RoleDelegate, core.RoleViewer:
			sctx.Role = core.Role(v)
		default:
			return sctx, fmt.Errorf("unknown role %q", v)
		}
	}

	latStr, lngStr := values.Get("lat"), values.Get("lng")
	if latStr != "" || lngStr != "" {
		if latStr == "" || lngStr == "" {
			return sctx, fmt.Errorf("lat and lng must be supplied together")
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return sctx, fmt.Errorf("invalid lat %q", latStr)
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			return sctx, fmt.Errorf("invalid lng %q", lngStr)
		}
		sctx.Location = &core.Coordinates{Latitude: lat, Longitude: lng}
	}

	sctx.Patches = splitMulti(values["patch"])

	return sctx, nil
}

func splitMulti(raw []string) []string {
	var out []string
	for _, chunk := range raw {
		for _, part := range strings.Split(chunk, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want RFC 3339 or YYYY-MM-DD)", v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
