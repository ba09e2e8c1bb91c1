package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/pricecompare/config"
	"sjsage522/pricecompare/internal/api"
	"sjsage522/pricecompare/internal/crawler"
	"sjsage522/pricecompare/internal/fetch"
	"sjsage522/pricecompare/internal/pricing"
	"sjsage522/pricecompare/internal/sites"
	"sjsage522/pricecompare/logger"
	"sjsage522/pricecompare/services/cache"
	"sjsage522/pricecompare/services/compare"
	"sjsage522/pricecompare/services/publisher"
	"sjsage522/pricecompare/services/tracker"
	"sjsage522/pricecompare/services/worker"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("addr", cfg.HTTPAddr).
		Str("cache", cfg.CacheBackend).
		Str("tracker", cfg.TrackerBackend).
		Str("publisher", cfg.PublisherBackend).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	app, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer app.Cleanup()

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      app.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RenderTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		serverDone <- srv.ListenAndServe()
	}()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server exited with error")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	cancel()
}

// App holds all the initialized services
type App struct {
	Handler   http.Handler
	Catalogue *sites.Catalogue
	Router    *fetch.Router
	Pipeline  *pricing.Pipeline
	Tracker   tracker.Repository
	Publisher publisher.Publisher
	Worker    *worker.Worker

	render *fetch.RenderFetcher
	redis  *redis.Client
}

// Cleanup cleans up all services
func (a *App) Cleanup() {
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	if a.render != nil {
		a.render.Close()
	}
	// the redis publisher closes the shared client itself
	if _, ok := a.Publisher.(*publisher.RedisPublisher); !ok && a.redis != nil {
		a.redis.Close()
	}
}

// newApp wires configuration into the fetch layer, the pipeline and the API
func newApp(ctx context.Context, cfg config.Config) (*App, error) {
	log := logger.ForServer()
	app := &App{Catalogue: sites.Default()}

	// Initialize cache service
	cacheSvc, err := cache.New(cfg.CacheBackend, cfg.MemcacheAddr)
	if err != nil {
		return nil, err
	}
	if mc, ok := cacheSvc.(*cache.MemcacheService); ok {
		if err := mc.Ping(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache not reachable, block markers will fail open")
		}
	}

	// Fetchers per mode
	direct := fetch.NewDirectFetcher(cfg.FetchTimeout)
	fetchers := fetch.Fetchers{Direct: direct}
	if cfg.RelayEnabled() {
		fetchers.Relay = fetch.NewRelayFetcher(fetch.RelayConfig{
			Endpoint:    cfg.RelayURL,
			APIKey:      cfg.RelayAPIKey,
			RenderParam: cfg.RelayRenderParam,
			Timeout:     cfg.FetchTimeout,
		})
		fetchers.RelayJS = fetch.NewRelayFetcher(fetch.RelayConfig{
			Endpoint:    cfg.RelayURL,
			APIKey:      cfg.RelayAPIKey,
			RenderParam: cfg.RelayRenderParam,
			Render:      true,
			Timeout:     cfg.RenderTimeout,
		})
	} else if app.Catalogue.NeedsRelay() {
		log.Warn().Msg("RELAY_API_KEY not set, relay sources are unavailable")
	}
	app.render = fetch.NewRenderFetcher(ctx, fetch.RenderConfig{
		RemoteURL: cfg.ChromeWSURL,
		Timeout:   cfg.RenderTimeout,
	})
	fetchers.Render = app.render

	app.Router = fetch.NewRouter(direct, cacheSvc, fetch.RouterOptions{
		RatePerSecond: cfg.FetchRatePerSec,
		BlockTime:     cfg.FetchBlockTime,
		Timeout:       cfg.RenderTimeout,
	})
	if err := app.Catalogue.Wire(app.Router, fetchers); err != nil {
		log.Warn().Err(err).Msg("Some sources fall back to direct fetching")
	}

	registry := pricing.NewRegistry(cfg.Currency)
	app.Catalogue.Register(registry)
	app.Pipeline = pricing.NewPipeline(app.Router, registry, logger.ForPipeline())

	crawlers := crawler.CreateCrawlers(app.Catalogue, app.Router, cfg.Currency)
	log.Info().Int("crawler_count", len(crawlers)).Strs("sources", sourceNames(app.Catalogue)).Msg("Created crawlers")

	// Redis is shared by the tracker and the publisher
	if cfg.UsesRedis() {
		app.redis = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.redis.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("Connected to Redis at %s (DB: %d)", cfg.RedisAddr, cfg.RedisDB)
	}

	if cfg.TrackerBackend == "redis" {
		app.Tracker = tracker.NewRedisRepository(app.redis, "pricecompare")
	} else {
		app.Tracker = tracker.NewMemoryRepository()
	}

	if cfg.PublisherBackend == "redis" {
		app.Publisher = publisher.NewRedisPublisher(app.redis, cfg.RedisStream, cfg.RedisStreamCount, cfg.RedisStreamMaxLength)
	} else {
		app.Publisher = publisher.NewMemoryPublisher(cfg.RedisStreamMaxLength)
	}

	app.Worker = worker.NewWorker(app.Pipeline, app.Tracker, app.Publisher)

	handlers := api.NewHandlers(api.Dependencies{
		Extractor: app.Pipeline,
		Resolver:  app.Catalogue,
		Crawlers:  crawlers,
		Comparer:  compare.NewComparer(crawlers, cfg.RenderTimeout),
		Tracker:   app.Tracker,
		Checker:   app.Worker,
	})
	app.Handler = api.NewRouter(handlers, cfg.AllowedOrigins, cfg.RenderTimeout+15*time.Second)

	return app, nil
}

func sourceNames(c *sites.Catalogue) []string {
	var names []string
	for _, s := range c.Sources() {
		names = append(names, s.String())
	}
	return names
}
