package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/storage"
)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show archive statistics",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print statistics as JSON",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			stats, err := store.Stats(ctx)
			if err != nil {
				return fmt.Errorf("getting stats: %w", err)
			}
			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			formatStats(store.Path(), stats)
			return nil
		},
	}
}

func formatStats(path string, stats storage.Stats) {
	fmt.Printf("Archive: %s (%s)\n", path, formatBytes(stats.SizeBytes))
	fmt.Printf("  Categories: %d\n", stats.Categories)
	fmt.Printf("  Users:      %d\n", stats.Users)
	fmt.Printf("  Exams:      %d\n", stats.Exams)
	fmt.Printf("  Pages:      %d\n", stats.Pages)
	fmt.Printf("  Answers:    %d\n", stats.Answers)
	fmt.Printf("  Comments:   %d\n", stats.Comments)
}

// formatBytes formats a byte count in binary units.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
