package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/access"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/api"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/render"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/search"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/storage"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search exams, answers and comments",
		ArgsUsage: "[QUERY...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Search query (defaults to the arguments)",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Search as this archive user; without it the search runs with full access",
			},
			&cli.BoolFlag{
				Name:  "admin",
				Usage: "Grant the caller global admin rights",
			},
			&cli.BoolFlag{
				Name:  "payed",
				Usage: "Treat the caller as having paid",
			},
			&cli.StringSliceFlag{
				Name:  "kind",
				Usage: "Kind to search: exam, answer or comment (repeatable)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results per kind (0 uses the configured default)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			query := c.String("query")
			if query == "" {
				query = strings.Join(c.Args().Slice(), " ")
			}
			return searchArchive(ctx, c, query)
		},
	}
}

func searchArchive(ctx context.Context, c *cli.Command, query string) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	caller, err := localCaller(ctx, store, c.String("user"), c.Bool("admin"), c.Bool("payed"))
	if err != nil {
		return err
	}

	values := url.Values{"q": {query}, "kind": c.StringSlice("kind")}
	if limit := c.Int("limit"); limit != 0 {
		values.Set("limit", strconv.Itoa(int(limit)))
	}
	req := search.ParseRequest(values)
	req.Caller = caller

	service := search.NewService(store, access.Policy{}, searchOptions(cfg.Search))
	results, err := service.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(api.NewSearchResponse(results)); err != nil {
			return err
		}
	} else {
		fmt.Print(render.New(render.DefaultStyles()).Results(results))
	}

	if results.Failed() {
		return errors.Join(kindErrors(results)...)
	}
	return nil
}

// localCaller builds the caller a command line search runs as. Without a
// username the operator is trusted with global admin rights; a username is
// resolved through the archive and the flags only add rights.
func localCaller(ctx context.Context, store *storage.Store, username string, admin, payed bool) (*access.Caller, error) {
	if username == "" {
		return &access.Caller{Username: "local", HasPayed: true, Scope: access.AdminScope{Global: true}}, nil
	}

	caller, err := store.LookupCaller(ctx, username)
	if err != nil {
		return nil, err
	}
	caller.Scope.Global = caller.Scope.Global || admin
	caller.HasPayed = caller.HasPayed || payed
	return caller, nil
}

func kindErrors(results *search.Results) []error {
	errs := make([]error, 0, len(results.Errors))
	for _, k := range results.Kinds {
		if err, ok := results.Errors[k]; ok {
			errs = append(errs, err)
		}
	}
	return errs
}
