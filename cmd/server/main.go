package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cesargomez89/quarry/internal/app"
	"github.com/cesargomez89/quarry/internal/config"
	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/docstore"
	httpapp "github.com/cesargomez89/quarry/internal/http"
	"github.com/cesargomez89/quarry/internal/httpclient"
	"github.com/cesargomez89/quarry/internal/locations"
	"github.com/cesargomez89/quarry/internal/logger"
	"github.com/cesargomez89/quarry/internal/places"
	"github.com/cesargomez89/quarry/internal/queue"
	"github.com/cesargomez89/quarry/internal/store"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func openDocStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.StoreDriver {
	case "mongo":
		return docstore.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, store.Indexes()...)
	default:
		return docstore.NewSQLite(cfg.DBPath, store.Indexes()...)
	}
}

func newProvider(cfg *config.Config, cache places.Cache) places.Provider {
	var provider places.Provider
	if cfg.UseMockProvider() {
		provider = places.NewMockProvider()
	} else {
		provider = places.NewGoogleProvider(cfg.PlacesBaseURL, cfg.PlacesAPIKey, httpclient.NewClient(nil, cfg.RequestDelay))
	}
	return places.NewCachedProvider(provider, cache, cfg.DetailsCacheTTL)
}

func run(cfg *config.Config, appLogger *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	docs, err := openDocStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	repo := store.New(docs, cfg.BatchSize)
	defer repo.Close()

	catalog, err := locations.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	// the queue does not survive a restart, so nothing can still be waiting or running
	if n, err := repo.ResetInFlight(ctx); err != nil {
		return fmt.Errorf("reset in-flight queries: %w", err)
	} else if n > 0 {
		appLogger.Info("Returned interrupted queries to pending", "count", n)
	}

	if cfg.UseMockProvider() {
		appLogger.Warn("Using the mock places provider")
	}
	extractor := places.NewExtractor(newProvider(cfg, repo), cfg.MaxResults, appLogger)

	q := queue.New(cfg.RequestDelay * time.Duration(constants.SearchCallsPerJob+cfg.MaxResults))
	extraction := app.NewExtractionService(repo, extractor, appLogger)
	worker := queue.NewWorker(q, extraction, cfg.RequestDelay, appLogger)

	h := httpapp.NewHandler(
		app.NewBaseTermService(repo, q, appLogger),
		app.NewGenerateService(repo, catalog, appLogger),
		app.NewQueryService(repo, q, appLogger),
		app.NewQueueService(repo, q, appLogger),
		catalog,
		appLogger,
	)
	h.Username = cfg.Username
	h.Password = cfg.Password

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		appLogger.Info("Server listening", "addr", srv.Addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	appLogger.Info("Server exiting")
	return err
}
