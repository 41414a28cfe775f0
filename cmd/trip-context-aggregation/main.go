package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	httpapi "github.com/i474232898/trip-context-aggregation/internal/api/http"
	"github.com/i474232898/trip-context-aggregation/internal/config"
	"github.com/i474232898/trip-context-aggregation/internal/itinerary"
	"github.com/i474232898/trip-context-aggregation/internal/itinerary/providers"
	"github.com/i474232898/trip-context-aggregation/internal/obs"
	"github.com/i474232898/trip-context-aggregation/internal/scheduler"
	"github.com/i474232898/trip-context-aggregation/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	metrics, err := obs.NewMetrics(nil)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	// Shared HTTP client for outbound provider calls; Timeout applies per attempt.
	httpCfg := providers.HTTPClientConfig{
		Client: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		Backoff: providers.BackoffConfig{
			MaxRetries:      cfg.HTTPMaxRetries,
			InitialInterval: cfg.BackoffInitial,
			MaxInterval:     cfg.BackoffMax,
		},
		Breaker: cfg.CircuitBreaker,
		Metrics: metrics,
		Logger:  logger,
	}

	opts := []itinerary.Option{
		itinerary.WithMetrics(metrics),
		itinerary.WithLogger(logger),
	}
	if cfg.GeocoderAPIKey != "" {
		opts = append(opts, itinerary.WithGeocoder(providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)))
	}

	// Core service orchestrating the places and weather providers.
	service := itinerary.NewService(
		providers.NewGeoapifyProvider(httpCfg, cfg.GeoapifyAPIKey, cfg.GeoapifyBaseURL),
		providers.NewOpenMeteoProvider(httpCfg, cfg.OpenMeteoBaseURL),
		opts...,
	)

	// Periodic upstream probes with configured retention.
	probes := store.NewMemoryStore(cfg.ProbeMaxHistory, cfg.ProbeMaxAge)
	sched := scheduler.New(cfg.ProbeLocations, cfg.ProbeInterval, service, probes, logger)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "trip-context-aggregation",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Two retried lookups at the per-attempt timeout must fit.
		WriteTimeout: 60 * time.Second,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Service:           service,
		Probes:            probes,
		Metrics:           metrics,
		GeoapifyKeyLoaded: cfg.GeoapifyAPIKey != "",
	})

	go func() {
		slog.Info("starting server", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
}
