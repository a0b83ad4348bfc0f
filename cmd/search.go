package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/buildsight/fieldsearch/pkg/config"
	"github.com/buildsight/fieldsearch/pkg/core"
)

// Define styles using lipgloss
var (
	queryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	resultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2)

	entityStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	offlineStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("203")).
			Margin(0, 0, 1, 0)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Run a one-shot search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Search query",
			},
			&cli.StringSliceFlag{
				Name:  "entity-type",
				Usage: "Restrict to entity type(s): project, employer, worker, site. Can be used multiple times",
			},
			&cli.StringFlag{
				Name:  "project-stage",
				Usage: "Filter projects by stage",
			},
			&cli.StringFlag{
				Name:  "compliance-rating",
				Usage: "Filter projects by compliance rating (green, amber, red)",
			},
			&cli.StringFlag{
				Name:  "eba-status",
				Usage: "Filter by EBA status",
			},
			&cli.StringFlag{
				Name:  "union-status",
				Usage: "Filter workers by union status",
			},
			&cli.StringFlag{
				Name:  "priority",
				Usage: "Filter by priority",
			},
			&cli.StringSliceFlag{
				Name:  "tag",
				Usage: "Keep results carrying any of the given tags. Can be used multiple times",
			},
			&cli.FloatFlag{
				Name:  "distance-km",
				Usage: "Keep results within this distance of --lat/--lng",
			},
			&cli.FloatFlag{
				Name:  "lat",
				Usage: "Caller latitude",
			},
			&cli.FloatFlag{
				Name:  "lng",
				Usage: "Caller longitude",
			},
			&cli.StringFlag{
				Name:  "role",
				Usage: "Caller role (admin, lead_organiser, organiser, delegate, viewer)",
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Skip the remote service and search the local cache only",
				Value: false,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit raw JSON instead of styled output",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runSearch(ctx, c)
		},
	}
}

func runSearch(ctx context.Context, c *cli.Command) error {
	query := c.String("query")
	if query == "" {
		return fmt.Errorf("a --query is required")
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	filters, err := filtersFromFlags(c)
	if err != nil {
		return err
	}
	sctx, err := contextFromFlags(c)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Printf("Warning: failed to close store: %v\n", err)
		}
	}()

	orch := buildOrchestrator(cfg, store, nil, c.Bool("offline"))
	defer orch.Close()

	set, err := orch.Search(ctx, query, filters, sctx)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(set)
	}

	printResultSet(set, sctx)
	return nil
}

func filtersFromFlags(c *cli.Command) (core.SearchFilters, error) {
	var f core.SearchFilters

	for _, raw := range c.StringSlice("entity-type") {
		et, err := core.ParseEntityType(raw)
		if err != nil {
			return f, err
		}
		f.EntityTypes = append(f.EntityTypes, et)
	}

	f.ProjectStage = c.String("project-stage")
	f.EBAStatus = c.String("eba-status")
	f.UnionStatus = c.String("union-status")
	f.Priority = c.String("priority")
	f.Tags = c.StringSlice("tag")

	if v := c.String("compliance-rating"); v != "" {
		switch core.ComplianceRating(v) {
		case core.ComplianceGreen, core.ComplianceAmber, core.ComplianceRed:
			f.ComplianceRating = core.ComplianceRating(v)
		default:
			return f, fmt.Errorf("unknown compliance rating %q", v)
		}
	}

	if km := c.Float("distance-km"); km > 0 {
		f.DistanceKm = km
	}

	return f, nil
}

func contextFromFlags(c *cli.Command) (core.SearchContext, error) {
	var sctx core.SearchContext

	if v := c.String("role"); v != "" {
		switch core.Role(v) {
		case core.RoleAdmin, core.RoleLeadOrganiser, core.RoleOrganiser, core.RoleDelegate, core.RoleViewer:
			sctx.Role = core.Role(v)
		default:
			return sctx, fmt.Errorf("unknown role %q", v)
		}
	}

	if c.IsSet("lat") || c.IsSet("lng") {
		if !c.IsSet("lat") || !c.IsSet("lng") {
			return sctx, fmt.Errorf("--lat and --lng must be supplied together")
		}
		sctx.Location = &core.Coordinates{
			Latitude:  c.Float("lat"),
			Longitude: c.Float("lng"),
		}
	}

	return sctx, nil
}

func printResultSet(set *core.ResultSet, sctx core.SearchContext) {
	fmt.Println(queryStyle.Render(fmt.Sprintf("Results for %q", set.Query)))

	if set.Offline {
		note := "Served from the offline cache"
		if !set.SavedAt.IsZero() {
			note = fmt.Sprintf("%s (saved %s)", note, set.SavedAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Println(offlineStyle.Render(note))
	}

	if len(set.Results) == 0 {
		fmt.Println(noDataStyle.Render("No results found."))
		return
	}

	titleCaser := cases.Title(language.English)
	for _, r := range set.Results {
		var b strings.Builder
		b.WriteString(entityStyle.Render(titleCaser.String(string(r.EntityType))))
		b.WriteString(" " + r.Title)
		if r.Subtitle != "" {
			b.WriteString("\n" + r.Subtitle)
		}
		if r.Description != "" {
			b.WriteString("\n" + r.Description)
		}
		meta := fmt.Sprintf("relevance %.2f", r.RelevanceScore)
		if r.Location != nil && sctx.Location != nil {
			meta += fmt.Sprintf("  (%.4f, %.4f)", r.Location.Latitude, r.Location.Longitude)
		}
		b.WriteString("\n" + metaStyle.Render(meta))
		fmt.Println(resultStyle.Render(b.String()))
	}

	fmt.Println(metaStyle.Render(fmt.Sprintf("%d results in %s", len(set.Results), set.Took)))
}
