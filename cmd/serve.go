package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/access"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/api"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/config"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/log"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/maintenance"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/metrics"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/search"
)

var serveLog = log.ForService("serve")

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the search API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on (overrides the config file)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c)
		},
	}
}

func serve(ctx context.Context, c *cli.Command) error {
	configPath := c.String("config")
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logFile, err := openLogFile(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	service := search.NewService(store, access.Policy{}, searchOptions(cfg.Search))
	service.Observe(metrics.SearchObserver{})
	callers := access.NewDirectory(store, cfg.Cache.CallerEntries, cfg.Cache.CallerTTL.Duration)

	scheduler := maintenance.NewScheduler(maintenance.Config{OptimizeInterval: cfg.Maintenance.Interval()}, store)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting maintenance: %w", err)
	}
	defer scheduler.Stop()

	listen := cfg.Listen
	if l := c.String("listen"); l != "" {
		listen = l
	}
	server := &http.Server{
		Addr:              listen,
		Handler:           api.NewServer(service, callers, store).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveLog.Infof("listening on %s (archive %s)", listen, store.Path())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	var watchEvents <-chan fsnotify.Event
	var watchErrors <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		serveLog.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				serveLog.Warnf("failed to close config file watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			serveLog.Warnf("not watching %s for changes: %v", configPath, err)
		} else {
			serveLog.Infof("watching %s for changes", configPath)
		}
		watchEvents = watcher.Events
		watchErrors = watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return shutdown(server)
		case err, ok := <-serveErr:
			if ok {
				return fmt.Errorf("serving: %w", err)
			}
			return nil
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				serveLog.Infof("received SIGHUP, reloading search settings")
				reloadSearchOptions(configPath, service)
				continue
			}
			serveLog.Infof("received %s, shutting down", sig)
			return shutdown(server)
		case event, ok := <-watchEvents:
			if !ok {
				watchEvents = nil
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			serveLog.Debugf("config file event: %s", event)

			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				// Editors replace the file on save; wait for the new one.
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					serveLog.Warnf("config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					serveLog.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			reloadSearchOptions(configPath, service)
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			serveLog.Warnf("config file watcher error: %v", err)
		}
	}
}

// reloadSearchOptions applies the [search] and [log] sections of the config
// file to the running service. An invalid file keeps the current settings.
// Listen address, storage and cache settings need a restart.
func reloadSearchOptions(configPath string, service *search.Service) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		serveLog.Errorf("failed to reload configuration: %v", err)
		return
	}
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		serveLog.Warnf("keeping log level: %v", err)
	}

	opts := searchOptions(cfg.Search)
	service.SetOptions(opts)
	serveLog.Infof("search settings reloaded: default_limit=%d max_limit=%d query_timeout=%s",
		opts.DefaultLimit, opts.MaxLimit, opts.QueryTimeout)
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	serveLog.Infof("server stopped")
	return nil
}
