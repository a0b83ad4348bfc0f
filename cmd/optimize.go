package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/buildsight/fieldsearch/pkg/config"
	"github.com/buildsight/fieldsearch/pkg/storage"
)

// OptimizeCommand creates the optimize command
func OptimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Database optimization and maintenance commands",
		Commands: []*cli.Command{
			{
				Name:  "analyze",
				Usage: "Refresh query planner statistics",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(c.String("config"), func(store *storage.Store) error {
						if err := store.Optimize(); err != nil {
							return fmt.Errorf("optimizing database: %w", err)
						}
						fmt.Println("Query planner statistics refreshed.")
						return nil
					})
				},
			},
			{
				Name:  "vacuum",
				Usage: "Run VACUUM to defragment the database",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(c.String("config"), func(store *storage.Store) error {
						if err := store.Vacuum(); err != nil {
							return fmt.Errorf("vacuuming database: %w", err)
						}
						fmt.Println("Database vacuumed.")
						return nil
					})
				},
			},
			{
				Name:  "checkpoint",
				Usage: "Truncate the WAL file",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(c.String("config"), func(store *storage.Store) error {
						if err := store.WALCheckpoint(); err != nil {
							return fmt.Errorf("checkpointing WAL: %w", err)
						}
						fmt.Println("WAL checkpointed.")
						return nil
					})
				},
			},
			{
				Name:  "prune",
				Usage: "Drop cached result sets not used recently",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Drop entries last used before this long ago",
						Value: 30 * 24 * time.Hour,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(c.String("config"), func(store *storage.Store) error {
						cutoff := time.Now().Add(-c.Duration("older-than"))
						n, err := store.PruneCache(cutoff)
						if err != nil {
							return fmt.Errorf("pruning cache: %w", err)
						}
						fmt.Printf("Pruned %d cached result sets.\n", n)
						return nil
					})
				},
			},
		},
	}
}

func withStore(configPath string, fn func(*storage.Store) error) error {
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
	return fn(store)
}
