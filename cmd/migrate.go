package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/urfave/cli/v3"

	"github.com/buildsight/fieldsearch/pkg/config"
	"github.com/buildsight/fieldsearch/pkg/db"
)

// MigrateCommand creates the migrate command
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "status",
				Usage: "Show migration status without applying migrations",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runMigrations(c.String("config"), c.Bool("status"))
		},
	}
}

func runMigrations(configPath string, statusOnly bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dbPath := filepath.Join(cfg.StorageDir, "fieldsearch.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Printf("Database does not exist, will be created on first use: %s\n", dbPath)
		return nil
	}

	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			fmt.Printf("Warning: failed to close database: %v\n", err)
		}
	}()

	manager := db.NewManager(sqlDB)

	if statusOnly {
		status, err := manager.GetStatus()
		if err != nil {
			return fmt.Errorf("getting migration status: %w", err)
		}
		fmt.Printf("Applied migrations: %d\n", len(status.Applied))
		for _, m := range status.Applied {
			fmt.Printf("  %03d %s (applied %s)\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Pending migrations: %d\n", len(status.Pending))
		for _, m := range status.Pending {
			fmt.Printf("  %03d %s\n", m.Version, m.Name)
		}
		return nil
	}

	if err := manager.ApplyPending(); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	fmt.Println("Migrations up to date.")
	return nil
}
