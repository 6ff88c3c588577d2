package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/storage"
)

// OptimizeCommand creates the optimize command
func OptimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Archive optimization and maintenance commands",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Run integrity checks on the archive",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "quick",
						Usage: "Skip the full-text index checks",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(ctx, c, func(store *storage.Store) error {
						return checkArchive(ctx, store, !c.Bool("quick"))
					})
				},
			},
			{
				Name:  "fts-rebuild",
				Usage: "Rebuild the full-text indexes",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Rebuild without checking the indexes first",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(ctx, c, func(store *storage.Store) error {
						return rebuildFTS(ctx, store, c.Bool("force"))
					})
				},
			},
			{
				Name:  "analyze",
				Usage: "Run ANALYZE to update query planner statistics",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(ctx, c, func(store *storage.Store) error {
						return step("ANALYZE", func() error { return store.Analyze(ctx) })
					})
				},
			},
			{
				Name:  "vacuum",
				Usage: "Run VACUUM to defragment the archive",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(ctx, c, func(store *storage.Store) error {
						return step("VACUUM", func() error { return store.Vacuum(ctx) })
					})
				},
			},
			{
				Name:  "checkpoint",
				Usage: "Run a WAL checkpoint to flush changes",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(ctx, c, func(store *storage.Store) error {
						return step("WAL checkpoint", func() error { return store.WALCheckpoint(ctx) })
					})
				},
			},
			{
				Name:  "all",
				Usage: "Run all optimization operations (optimize, analyze, checkpoint)",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(ctx, c, func(store *storage.Store) error {
						if err := step("index optimize", func() error { return store.Optimize(ctx) }); err != nil {
							return err
						}
						if err := step("ANALYZE", func() error { return store.Analyze(ctx) }); err != nil {
							return err
						}
						if err := step("WAL checkpoint", func() error { return store.WALCheckpoint(ctx) }); err != nil {
							return err
						}
						fmt.Println("All optimization operations completed successfully")
						return nil
					})
				},
			},
		},
	}
}

func withStore(ctx context.Context, c *cli.Command, fn func(*storage.Store) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)
	return fn(store)
}

func step(name string, fn func() error) error {
	fmt.Printf("Running %s... ", name)
	if err := fn(); err != nil {
		fmt.Printf("✗ FAILED - %v\n", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Println("✓ OK")
	return nil
}

func checkArchive(ctx context.Context, store *storage.Store, deepFTS bool) error {
	fmt.Printf("Checking %s... ", store.Path())
	problems, err := store.IntegrityCheck(ctx)
	if err != nil {
		fmt.Printf("✗ FAILED - %v\n", err)
		return err
	}
	if len(problems) > 0 {
		fmt.Println("✗ FAILED")
		for _, p := range problems {
			fmt.Printf("  %s\n", p)
		}
		return fmt.Errorf("integrity check found %d problem(s)", len(problems))
	}

	if deepFTS {
		if err := store.FTSIntegrityCheck(ctx); err != nil {
			fmt.Printf("✗ FTS FAILED - %v\n", err)
			fmt.Println("To fix full-text index corruption, run: examsearch optimize fts-rebuild")
			return fmt.Errorf("full-text integrity check failed")
		}
	}
	fmt.Println("✓ OK")
	return nil
}

func rebuildFTS(ctx context.Context, store *storage.Store, force bool) error {
	if !force {
		fmt.Print("Checking full-text indexes... ")
		err := store.FTSIntegrityCheck(ctx)
		if err == nil {
			fmt.Println("✓ OK (no rebuild needed)")
			return nil
		}
		fmt.Printf("✗ NEEDS REBUILD - %v\n", err)
	}
	return step("full-text rebuild", func() error { return store.RebuildFTS(ctx) })
}
