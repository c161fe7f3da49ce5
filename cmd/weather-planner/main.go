package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-planner/internal/api/http"
	"github.com/i474232898/weather-planner/internal/config"
	"github.com/i474232898/weather-planner/internal/fetch"
	"github.com/i474232898/weather-planner/internal/geocode"
	"github.com/i474232898/weather-planner/internal/log"
	"github.com/i474232898/weather-planner/internal/scheduler"
	"github.com/i474232898/weather-planner/internal/store"
	"github.com/i474232898/weather-planner/internal/weather"
	"github.com/i474232898/weather-planner/internal/weather/capabilities"
	"github.com/i474232898/weather-planner/internal/weather/executor"
	"github.com/i474232898/weather-planner/internal/weather/planner"
	"github.com/i474232898/weather-planner/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(cfg.LogDebug); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Response cache: SQLite when a path is configured, memory otherwise.
	var cache fetch.Cache
	if cfg.CacheDBPath != "" {
		sqliteStore, err := store.OpenSQLite(cfg.CacheDBPath)
		if err != nil {
			log.Fatalf("failed to open cache database: %v", err)
		}
		defer sqliteStore.Close()
		cache = sqliteStore
	} else {
		cache = store.NewMemoryStore(cfg.CacheMaxEntries)
	}

	limiter := fetch.NewLimiter(cfg.FetchMinGap)
	limiter.SetGap(geocode.ThrottleNominatim, geocode.NominatimGap)

	client := fetch.NewClient(fetch.Config{
		HTTPClient: &http.Client{},
		Cache:      cache,
		Limiter:    limiter,
		Timeout:    cfg.HTTPTimeout,
		UserAgent:  cfg.UserAgent,
	})

	openMeteo := providers.NewOpenMeteoProvider(client, providers.OpenMeteoConfig{
		ForecastBaseURL: cfg.ForecastURL,
		ArchiveBaseURL:  cfg.ArchiveURL,
		ForecastTTL:     cfg.ForecastTTL,
		ArchiveTTL:      cfg.ArchiveTTL,
	})

	registry := capabilities.NewRegistry(openMeteo, cfg.CapabilitiesTTL)

	var batch executor.BatchFetcher = executor.SequentialFetcher{}
	if cfg.FetchWorkers > 1 {
		batch = executor.PooledFetcher{Workers: cfg.FetchWorkers}
	}

	var resolver geocode.Chain
	if cfg.GoogleGeocoderAPIKey != "" {
		resolver = append(resolver, geocode.NewGoogle(cfg.GoogleGeocoderAPIKey))
	}
	resolver = append(resolver, geocode.NewNominatim(client, cfg.NominatimURL))

	service := weather.NewService(
		registry,
		resolver,
		planner.New(registry),
		executor.New(openMeteo, batch),
	)

	// Keep the capability catalog warm.
	sched := scheduler.New(registry, cfg.CapabilitiesTTL, cfg.HTTPTimeout)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-planner",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Region plans wait on the throttle for every sample point.
		WriteTimeout: 10 * time.Minute,
		ErrorHandler: httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, service)

	go func() {
		log.Infow("listening", "port", cfg.Port, "fetch_workers", cfg.FetchWorkers, "cache_db", cfg.CacheDBPath)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorw("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorw("error during shutdown", "error", err)
	}
}
