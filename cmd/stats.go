package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/buildsight/fieldsearch/pkg/config"
)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show storage statistics",
		Action: func(ctx context.Context, c *cli.Command) error {
			return showStats(c.String("config"))
		},
	}
}

// showStats displays storage statistics
func showStats(configPath string) error {
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

	stats, err := store.Stats()
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("Storage: %s\n\n", cfg.StorageDir)
	for _, k := range keys {
		switch v := stats[k].(type) {
		case time.Time:
			fmt.Printf("  %-20s %s\n", k, v.Local().Format("2006-01-02 15:04:05"))
		default:
			fmt.Printf("  %-20s %v\n", k, v)
		}
	}
	return nil
}
