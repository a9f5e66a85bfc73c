// SPDX-License-Identifier: MIT

// harmond is the harmonization daemon. It extracts the raw survey archive,
// cleans both extracts against their variable dictionaries, merges the
// panels and serves the resulting artifacts over HTTP. With --once it runs
// the pipeline a single time and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panelkit/harmon/internal/api"
	"github.com/panelkit/harmon/internal/config"
	"github.com/panelkit/harmon/internal/jobs"
	"github.com/panelkit/harmon/internal/log"
	"github.com/panelkit/harmon/internal/store"
	"github.com/panelkit/harmon/internal/watch"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (YAML)")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	log.Configure(log.Config{
		Level:   "info",
		Service: "harmond",
		Version: version,
	})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}

	if cfg.LogLevel != "" {
		log.SetLevel(cfg.LogLevel)
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("path", *configPath).
		Str("data_dir", cfg.DataDir).
		Msg("configuration loaded")

	db, err := store.Open(cfg.Store.Path, store.DefaultConfig())
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "store.open_failed").
			Str("path", cfg.Store.Path).
			Msg("failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close store")
		}
	}()

	runner := jobs.NewRunner(cfg, db)

	status, err := runner.TryRun(ctx)
	if err != nil {
		if *once {
			logger.Fatal().Err(err).Str("event", "run.failed").Msg("pipeline run failed")
		}
		// The daemon stays up on a failed initial run; inputs may appear
		// later and trigger a refresh.
		logger.Error().Err(err).Str("event", "run.failed").Msg("initial pipeline run failed")
	}

	if *once {
		logger.Info().Str("event", "daemon.done").Msg("single run completed")
		return
	}

	srv := api.New(cfg, db, runner)
	if status != nil {
		srv.SetStatus(status)
	}

	if cfg.Watch.Enabled {
		w, err := watch.New(
			[]string{cfg.ArchivePath(), cfg.Meta.NLSY, cfg.Meta.CHS},
			cfg.Watch.DebounceDuration(),
			func(ctx context.Context) {
				st, err := runner.TryRun(ctx)
				if errors.Is(err, jobs.ErrRunInFlight) {
					logger.Warn().Str("event", "run.skipped").Msg("watcher-triggered run skipped, another run in flight")
					return
				}
				if err != nil {
					logger.Error().Err(err).Str("event", "run.failed").Msg("watcher-triggered run failed")
					return
				}
				srv.SetStatus(st)
			},
		)
		if err != nil {
			logger.Fatal().Err(err).Str("event", "watch.setup_failed").Msg("failed to create watcher")
		}
		if err := w.Start(ctx); err != nil {
			logger.Fatal().Err(err).Str("event", "watch.setup_failed").Msg("failed to start watcher")
		}
	}

	httpSrv := &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("event", "http.listen").
			Str("addr", cfg.API.Listen).
			Msg("http server listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Str("event", "daemon.shutdown").Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown failed")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Str("event", "http.failed").Msg("http server failed")
		}
	}

	logger.Info().Str("event", "daemon.stopped").Msg("daemon stopped")
}
