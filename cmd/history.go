package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/buildsight/fieldsearch/pkg/config"
)

// HistoryCommand creates the history command
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show or clear recent search history",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "clear",
				Usage: "Clear the search history",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runHistory(c.String("config"), c.Int("limit"), c.Bool("clear"))
		},
	}
}

func runHistory(configPath string, limit int, clear bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
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

	if clear {
		if err := store.ClearHistory(); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		fmt.Println("Search history cleared.")
		return nil
	}

	entries, err := store.RecentHistory(limit)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println(noDataStyle.Render("No search history."))
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %s\n", e.Query, metaStyle.Render(e.Timestamp.Local().Format("2006-01-02 15:04")))
	}
	return nil
}
