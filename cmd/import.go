package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/storage"
)

// ImportCommand creates the import command
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load exams, answers and comments from TOML archive files",
		ArgsUsage: "ARCHIVE.toml [ARCHIVE.toml...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Validate the archives without writing anything",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			paths := c.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("at least one archive file is required")
			}
			return importArchives(ctx, c, paths, c.Bool("check"))
		},
	}
}

func importArchives(ctx context.Context, c *cli.Command, paths []string, checkOnly bool) error {
	archives := make([]*storage.Archive, 0, len(paths))
	for _, path := range paths {
		a, err := storage.ReadArchive(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		archives = append(archives, a)
	}
	if checkOnly {
		fmt.Printf("%d archive(s) are valid\n", len(archives))
		return nil
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	for i, a := range archives {
		stats, err := store.Load(ctx, a)
		if err != nil {
			return fmt.Errorf("importing %s: %w", paths[i], err)
		}
		fmt.Printf("%s: %d categories, %d users, %d exams, %d pages, %d answers, %d comments\n",
			paths[i], stats.Categories, stats.Users, stats.Exams, stats.Pages, stats.Answers, stats.Comments)
	}
	return nil
}
