package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/config"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/db"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/storage"
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
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return RunMigrations(ctx, cfg, c.Bool("status"))
		},
	}
}

// RunMigrations reports or applies pending archive migrations.
func RunMigrations(ctx context.Context, cfg *config.Config, statusOnly bool) error {
	path := cfg.DatabasePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("Archive does not exist, it will be created on first use: %s\n", path)
		return nil
	}

	store, err := storage.OpenWithoutMigrations(path)
	if err != nil {
		return err
	}
	defer closeStore(store)

	manager := db.NewMigrationManager(store.DB())
	if statusOnly {
		return showMigrationStatus(ctx, manager)
	}

	applied, err := manager.ApplyPendingMigrations(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	fmt.Printf("Applied %d migration(s), archive is up to date\n", applied)
	return nil
}

func showMigrationStatus(ctx context.Context, manager *db.MigrationManager) error {
	status, err := manager.GetMigrationStatus(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Applied migrations: %d\n", len(status.Applied))
	for _, migration := range status.Applied {
		appliedTime := "unknown"
		if migration.AppliedAt != nil {
			appliedTime = migration.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("  ✓ %03d: %s (applied: %s)\n", migration.Version, migration.Name, appliedTime)
	}

	fmt.Printf("Pending migrations: %d\n", len(status.Pending))
	for _, migration := range status.Pending {
		fmt.Printf("  • %03d: %s\n", migration.Version, migration.Name)
	}
	if len(status.Pending) == 0 {
		fmt.Println("  (none - archive is up to date)")
	}
	return nil
}
