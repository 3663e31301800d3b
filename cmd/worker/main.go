package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"hitrivals/schedule/internal/api"
	"hitrivals/schedule/internal/cache"
	"hitrivals/schedule/internal/client"
	"hitrivals/schedule/internal/config"
	"hitrivals/schedule/internal/live"
	"hitrivals/schedule/internal/logos"
	"hitrivals/schedule/internal/metrics"
	"hitrivals/schedule/internal/models"
	"hitrivals/schedule/internal/repository"
	"hitrivals/schedule/internal/schedule"
	"hitrivals/schedule/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logger
	setupLogger()

	log.Info().Msg("Starting HitRivals schedule worker")

	// Load configuration
	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Bool("mock_mode", cfg.UseMockData()).
		Str("timezone", cfg.Location().String()).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Initialize Tank01 client
	tank01 := client.NewClient(client.Config{
		APIKey:      cfg.Tank01APIKey,
		MLBBaseURL:  cfg.MLBBaseURL,
		MLBHost:     cfg.MLBAPIHost,
		NBABaseURL:  cfg.NBABaseURL,
		NBAHost:     cfg.NBAAPIHost,
		Timeout:     cfg.APITimeout,
		MaxAttempts: cfg.APIMaxAttempts,
		RetryDelay:  cfg.APIRetryDelay,
		Location:    cfg.Location(),
	})
	log.Info().Msg("Tank01 client initialized")

	svc := schedule.NewService(tank01, schedule.Options{
		MockMode: cfg.UseMockData(),
		Location: cfg.Location(),
	})

	apiDeps := api.Deps{
		Schedule: svc,
		CacheTTL: cfg.CacheTTLSchedule,
	}
	schedDeps := scheduler.Deps{
		Schedules: svc,
		Scores:    tank01,
	}

	// Initialize database connection. The worker serves schedules without it.
	if cfg.DatabaseEnabled {
		db, err := repository.NewDatabase(ctx, repository.Config{
			Host:     cfg.DatabaseHost,
			Port:     strconv.Itoa(cfg.DatabasePort),
			User:     cfg.DatabaseUser,
			Password: cfg.DatabasePassword,
			Database: cfg.DatabaseName,
			SSLMode:  cfg.DatabaseSSLMode,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to database - continuing without storage")
		} else {
			defer db.Close()
			log.Info().Msg("Database connection established")

			if err := db.Migrate(ctx); err != nil {
				log.Fatal().Err(err).Msg("Failed to apply database schema")
			}

			apiDeps.Games = db.Games
			apiDeps.Votes = db.Votes
			apiDeps.Database = db
			schedDeps.Games = db.Games
			schedDeps.Votes = db.Votes
		}
	}

	// Initialize Redis client
	if cfg.RedisEnabled {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr()).Msg("Failed to connect to Redis - continuing without cache")
		} else {
			defer redisCache.Close()
			log.Info().Msg("Redis cache connected")

			apiDeps.Cache = redisCache
			apiDeps.Redis = redisCache
			schedDeps.Cache = redisCache
		}
	}

	// Team logos
	logoCache := logos.NewCache(cfg.LogoDir)
	for _, league := range models.Leagues {
		found := logoCache.Verify(league)
		log.Info().Str("league", league.String()).Int("logos", len(found)).Msg("Team logos verified")
	}
	apiDeps.Logos = logoCache

	// Live score hub
	hub := live.NewHub()
	go hub.Run(ctx)
	apiDeps.Live = hub.ServeWS(ctx)
	schedDeps.Hub = hub

	// Start metrics HTTP server
	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort)
	}

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Create and start scheduler
	sched := scheduler.NewScheduler(scheduler.Config{
		SyncCron:     cfg.ScheduleSyncCron,
		PollInterval: cfg.LivePollInterval,
		CacheTTL:     cfg.CacheTTLSchedule,
		Location:     cfg.Location(),
	}, schedDeps)

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}

		// Warm storage and cache with today's games
		go func() {
			if err := sched.SyncSchedules(ctx); err != nil {
				log.Error().Err(err).Msg("Initial schedule sync failed, continuing anyway...")
			}
		}()
	}

	// Start API server
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: api.NewServer(apiDeps, api.Options{
			CORSOrigins: cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	log.Info().Msg("Shutting down API server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API server shutdown failed")
	}

	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
