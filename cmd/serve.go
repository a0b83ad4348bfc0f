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

	"github.com/buildsight/fieldsearch/pkg/api"
	"github.com/buildsight/fieldsearch/pkg/config"
	"github.com/buildsight/fieldsearch/pkg/log"
	"github.com/buildsight/fieldsearch/pkg/realtime"
)

const (
	maintenanceInterval = time.Hour
	heartbeatInterval   = 30 * time.Second
	cachePruneAge       = 30 * 24 * time.Hour
	shutdownGrace       = 10 * time.Second
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the search API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Listen address (overrides config)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("listen"))
		},
	}
}

func serve(ctx context.Context, configPath, listenOverride string) error {
	logger := log.ForComponent("serve")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	listen := cfg.Listen
	if listenOverride != "" {
		listen = listenOverride
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

	hub := realtime.NewHub(32)
	orch := buildOrchestrator(cfg, store, hub, false)
	defer orch.Close()

	server := api.NewServer(orch, store, buildSuggester(cfg, store), hub)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    listen,
		Handler: api.RequestIDMiddleware(api.CorsMiddleware(mux)),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Signal handling - includes SIGHUP for reload
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	reload := func() {
		newCfg, err := config.LoadConfig(configPath)
		if err != nil {
			logger.Errorf("reloading config: %v", err)
			return
		}
		server.SwapSuggester(buildSuggester(newCfg, store))
		orch.SetDebounce(newCfg.Search.DebounceWindow.Duration)
		logger.Infof("configuration reloaded: %d trending queries, debounce %s",
			len(newCfg.Suggest.Trending), newCfg.Search.DebounceWindow.Duration)
	}

	// Set up filesystem watcher for config file
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Warnf("failed to close config file watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			logger.Warnf("failed to watch config file %s: %v", configPath, err)
		} else {
			logger.Infof("watching config file for changes: %s", configPath)
		}
	}

	maintenance := time.NewTicker(maintenanceInterval)
	defer maintenance.Stop()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	var watchEvents chan fsnotify.Event
	var watchErrors chan error
	if watcher != nil {
		watchEvents = watcher.Events
		watchErrors = watcher.Errors
	}

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				logger.Infof("received SIGHUP, reloading configuration")
				reload()
			case syscall.SIGINT, syscall.SIGTERM:
				fmt.Println("\nShutting down...")
				return shutdown(httpServer)
			}

		case event, ok := <-watchEvents:
			if !ok {
				watchEvents = nil
				continue
			}
			// Editors often replace the file instead of writing in place.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					time.Sleep(100 * time.Millisecond)
					if err := watcher.Add(configPath); err != nil {
						logger.Warnf("re-watching config file: %v", err)
					}
				}
				logger.Infof("config file changed (%s), reloading", event.Op)
				reload()
			}

		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			logger.Warnf("config watcher error: %v", err)

		case <-maintenance.C:
			if err := store.Optimize(); err != nil {
				logger.Warnf("optimize failed: %v", err)
			}
			if n, err := store.PruneCache(time.Now().Add(-cachePruneAge)); err != nil {
				logger.Warnf("cache prune failed: %v", err)
			} else if n > 0 {
				logger.Infof("pruned %d stale cached result sets", n)
			}
			if err := store.WALCheckpoint(); err != nil {
				logger.Warnf("WAL checkpoint failed: %v", err)
			}

		case <-heartbeat.C:
			hub.Heartbeat()

		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)

		case <-ctx.Done():
			fmt.Println("\nShutting down...")
			return shutdown(httpServer)
		}
	}
}

func shutdown(s *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
