package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/buildsight/fieldsearch/pkg/config"
)

// SuggestCommand creates the suggest command
func SuggestCommand() *cli.Command {
	return &cli.Command{
		Name:  "suggest",
		Usage: "Show search suggestions for a partial query",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Partial query (empty shows general suggestions)",
			},
			&cli.StringFlag{
				Name:  "role",
				Usage: "Caller role (admin, lead_organiser, organiser, delegate, viewer)",
			},
			&cli.FloatFlag{
				Name:  "lat",
				Usage: "Caller latitude",
			},
			&cli.FloatFlag{
				Name:  "lng",
				Usage: "Caller longitude",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runSuggest(ctx, c)
		},
	}
}

func runSuggest(ctx context.Context, c *cli.Command) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
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

	suggestions := buildSuggester(cfg, store).Suggest(ctx, c.String("query"), sctx)
	if len(suggestions) == 0 {
		fmt.Println(noDataStyle.Render("No suggestions."))
		return nil
	}

	for _, s := range suggestions {
		fmt.Printf("%s  %s\n", s.Text, metaStyle.Render(fmt.Sprintf("(%s, %.2f)", s.Source, s.Weight)))
	}
	return nil
}
