/*
Boorusync is the entry point for the boorusync ingestion driver.

It pages through one or more source URLs, reconciling every surviving post
against a configured destination.

Usage:

	go run cmd/boorusync/main.go <url> [url...]

The flags/environment variables are:

	DESTINATION            Registered destination adapter name (required)
	DESTINATION_BASE_URL   Destination instance origin (required)
	DESTINATION_USER       Destination auth user (required)
	DESTINATION_TOKEN      Destination auth token (required)
	DOWNLOADER_BINARY      External downloader executable (default: gallery-dl)
	TEMP_FOLDER            Scratch directory root (default: ./tmp)

Startup Sequence:

 1. Logger: initialize structured JSON logging (slog).
 2. Config: load and validate environment variables.
 3. Transport: build the shared HTTP session and per-host rate limiter.
 4. Wiring: resolve the destination adapter from the registry and build
    the download manager and pipeline.
 5. Run: drive the pipeline over every URL argument.
 6. Shutdown: on signal, cancel the run, let in-flight pages unwind, and
    remove the scratch root before exit.

No business logic lives here. This file is strictly for orchestration and
wiring.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/corvid-labs/boorusync/internal/core/destination"
	"github.com/corvid-labs/boorusync/internal/core/download"
	"github.com/corvid-labs/boorusync/internal/core/ingest"
	"github.com/corvid-labs/boorusync/internal/core/registry"
	"github.com/corvid-labs/boorusync/internal/platform/config"
	"github.com/corvid-labs/boorusync/internal/platform/constants"
	"github.com/corvid-labs/boorusync/internal/platform/ctxutil"
	"github.com/corvid-labs/boorusync/internal/platform/httpsession"
	"github.com/corvid-labs/boorusync/internal/platform/ratelimit"
	redisclient "github.com/corvid-labs/boorusync/internal/platform/redis"
	"github.com/corvid-labs/boorusync/internal/platform/tokencache"

	// Registered adapters: imported for their init()-time registration,
	// never referenced directly outside the registry lookups below.
	_ "github.com/corvid-labs/boorusync/internal/core/source/danbooru"
	_ "github.com/corvid-labs/boorusync/internal/core/source/e621"
	_ "github.com/corvid-labs/boorusync/internal/core/source/gelbooru"
	_ "github.com/corvid-labs/boorusync/internal/core/szurubooru"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application_startup_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// # 1. Logger
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("boorusync_initializing", slog.String("version", constants.AppVersion))

	urls := os.Args[1:]
	if len(urls) == 0 {
		return fmt.Errorf("usage: boorusync <url> [url...]")
	}

	// # 2. Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("destination", cfg.Destination),
	)

	// # 3. Transport
	session, err := httpsession.NewDefault()
	if err != nil {
		return fmt.Errorf("build http session: %w", err)
	}
	limiter := ratelimit.New(constants.DefaultDestinationRPS, cfg.LimitPerHost)
	defer limiter.Close()

	var cache tokencache.Cache
	if cfg.RedisURL != "" {
		redisConn, err := redisclient.NewClient(context.Background(), cfg.RedisURL, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		cache = tokencache.NewRedisCache(redisConn, constants.AppName)
		log.Info("shared_token_cache_enabled")
	}

	// # 4. Wiring
	reg := registry.Global()

	dest, err := reg.FindDestination(cfg.Destination, destination.Dependencies{
		Session:                session,
		Limiter:                limiter,
		Cache:                  cache,
		BaseURL:                cfg.DestinationBaseURL,
		AuthUser:               cfg.DestinationUser,
		AuthToken:              cfg.DestinationToken,
		TagNameCap:             cfg.TagNameCap,
		TagConflictRetryDelay:  cfg.TagConflictRetryDelay,
		SourceCheckBeforeMD5:   cfg.SourceCheckBeforeMD5,
		RootFolder:             cfg.RootFolder,
		ImageDistanceThreshold: cfg.ImageDistanceThreshold,
	})
	if err != nil {
		return fmt.Errorf("resolve destination adapter: %w", err)
	}

	if err := os.MkdirAll(cfg.TempFolder, 0o755); err != nil {
		return fmt.Errorf("create temp folder: %w", err)
	}
	defer func() {
		log.Info("removing_scratch_root", slog.String("path", cfg.TempFolder))
		if rmErr := os.RemoveAll(cfg.TempFolder); rmErr != nil {
			log.Warn("scratch_root_cleanup_failed", slog.Any("error", rmErr))
		}
	}()

	downloader := download.NewManager(cfg.DownloaderBinary, cfg.TempFolder)
	downloader.PageSize = cfg.DownloadPageSize
	downloader.Verbose = cfg.Debug

	pipeline := ingest.NewPipeline(cfg.IngestConfig(), dest, downloader, reg)

	// # 5. Lifecycle handling
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runCtx = ctxutil.WithLogger(runCtx, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	runErr := make(chan error, 1)
	go func() {
		runErr <- pipeline.Run(runCtx, urls)
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
		cancel()
		<-runErr
		return errors.New("shutdown: interrupted by signal")
	case err := <-runErr:
		if err != nil {
			return fmt.Errorf("pipeline run: %w", err)
		}
	}

	log.Info("boorusync_run_complete")
	return nil
}
