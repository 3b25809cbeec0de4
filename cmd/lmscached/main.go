// Command lmscached runs the learning platform's cache service: the
// postgres-backed cache store, the background expiry sweep, and the admin
// API consumed by the operations dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/brightpath/lmscache/cache"
	"github.com/brightpath/lmscache/cache/postgres"
	"github.com/brightpath/lmscache/config"
	"github.com/brightpath/lmscache/invalidation"
	"github.com/brightpath/lmscache/logger"
	"github.com/brightpath/lmscache/maintenance"
	"github.com/brightpath/lmscache/maintenance/loadtest"
	"github.com/brightpath/lmscache/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file, empty for defaults only")
	runLoadTest := flag.Bool("loadtest", false, "run the cache load test against the configured store and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Logger config is unavailable before the config loads.
		logger.New("info", false).Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if *runLoadTest {
		if err := runHarness(cfg, log); err != nil {
			log.Fatal().Err(err).Msg("Load test failed")
		}
		return
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Service exited with error")
	}
}

// runHarness drives the load harness against the configured store and logs
// the report instead of serving the admin API.
func runHarness(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(&cfg.Database, log)
	if err != nil {
		return err
	}

	store := postgres.NewStore(db, log)
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	svc := cache.NewService(store, log)
	report, err := loadtest.New(svc, log, cfg.LoadTest).Run(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Int64("operations", report.Operations).
		Int64("errors", report.Errors).
		Float64("ops_per_sec", report.OpsPerSec).
		Float64("inferred_hit_rate", report.InferredHitRate).
		Dur("p50", report.P50).
		Dur("p90", report.P90).
		Dur("p95", report.P95).
		Dur("p99", report.P99).
		Msg("Load test report")
	return nil
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(&cfg.Database, log)
	if err != nil {
		return err
	}

	store := postgres.NewStore(db, log)
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	svc := cache.NewService(store, log)
	hooks := invalidation.NewHooks(svc, log)
	cleaner := maintenance.NewCleaner(svc, log, cfg.Cache.CleanupInterval)
	analyzer := maintenance.NewAnalyzer(svc, cfg.Health)

	go cleaner.Run(ctx)

	srv := server.New(cfg.Server, log)
	server.NewAdminHandler(svc, cleaner, analyzer, hooks, cfg.Cache, log).Register(srv.Echo())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
