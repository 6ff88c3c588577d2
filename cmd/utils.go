package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/config"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/log"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/search"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/storage"
)

// loadConfig reads the --config file and applies its log level. --debug
// overrides the configured level for every service.
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("configuring log level: %w", err)
	}
	if c.Bool("debug") {
		log.SetGlobalDebug(true)
	}
	return cfg, nil
}

// openLogFile routes logging to the configured file, if any.
func openLogFile(cfg *config.Config) (io.Closer, error) {
	if cfg.Log.File == "" {
		return io.NopCloser(nil), nil
	}
	return log.OpenFile(log.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

// openStore opens the archive database, creating the storage directory and
// applying pending migrations.
func openStore(ctx context.Context, cfg *config.Config) (*storage.Store, error) {
	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	store, err := storage.Open(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	return store, nil
}

func closeStore(store *storage.Store) {
	if err := store.Close(); err != nil {
		fmt.Printf("Warning: failed to close archive: %v\n", err)
	}
}

// searchOptions converts the [search] config section.
func searchOptions(sc config.SearchConfig) search.Options {
	return search.Options{
		DefaultLimit:        sc.DefaultLimit,
		MaxLimit:            sc.MaxLimit,
		QueryTimeout:        sc.QueryTimeout.Duration,
		PageOverfetch:       sc.PageOverfetch,
		SimilarityThreshold: sc.SimilarityThreshold,
		ExamHeadline:        headlineOptions(sc.ExamHeadline),
		PostHeadline:        headlineOptions(sc.PostHeadline),
	}
}

func headlineOptions(h config.HeadlineConfig) storage.HeadlineOptions {
	return storage.HeadlineOptions{
		MaxFragments: h.MaxFragments,
		MinWords:     h.MinWords,
		MaxWords:     h.MaxWords,
	}
}
