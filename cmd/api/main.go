package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/brightpath-health/practice-dashboard/internal/api/router"
	"github.com/brightpath-health/practice-dashboard/internal/appointments"
	"github.com/brightpath-health/practice-dashboard/internal/booking"
	"github.com/brightpath-health/practice-dashboard/internal/cache"
	appconfig "github.com/brightpath-health/practice-dashboard/internal/config"
	"github.com/brightpath-health/practice-dashboard/internal/http/handlers"
	"github.com/brightpath-health/practice-dashboard/internal/observability/metrics"
	"github.com/brightpath-health/practice-dashboard/internal/schedule"
	"github.com/brightpath-health/practice-dashboard/internal/ws"
	"github.com/brightpath-health/practice-dashboard/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel, cfg.Env)
	logger.Info("starting practice-dashboard API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"provider_id", cfg.ProviderID,
	)

	loc, err := time.LoadLocation(cfg.ProviderTimezone)
	if err != nil {
		logger.Error("invalid provider timezone", "tz", cfg.ProviderTimezone, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis snapshot cache and availability-changed signal.
	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()
	snapshotCache := cache.NewStore(redisClient, cfg.ProviderID, logger.Component("cache"))

	// Postgres holds the practice's own booking records.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	repo := appointments.NewRepository(pool)

	bookingClient, err := booking.NewClient(booking.Config{
		BaseURL:    cfg.BookingAPIBaseURL,
		Token:      cfg.BookingAPIToken,
		ProviderID: cfg.ProviderID,
	})
	if err != nil {
		logger.Error("configuring booking client", "error", err)
		os.Exit(1)
	}

	scheduleMetrics := metrics.NewScheduleMetrics(prometheus.DefaultRegisterer)

	reconciler, err := schedule.NewReconciler(schedule.ReconcilerConfig{
		Remote:   bookingClient,
		Cache:    snapshotCache,
		Location: loc,
		Logger:   logger.Component("schedule"),
		Metrics:  scheduleMetrics,
	})
	if err != nil {
		logger.Error("configuring reconciler", "error", err)
		os.Exit(1)
	}

	availabilityChanged, unsubscribe := snapshotCache.SubscribeAvailabilityChanged(ctx)
	defer unsubscribe()

	runner, err := schedule.NewRunner(schedule.RunnerConfig{
		Reconciler:          reconciler,
		Interval:            cfg.PollInterval,
		FetchTimeout:        cfg.FetchTimeout,
		Logger:              logger.Component("runner"),
		AvailabilityChanged: availabilityChanged,
	})
	if err != nil {
		logger.Error("configuring runner", "error", err)
		os.Exit(1)
	}
	go runner.Start(ctx)

	r := router.New(&router.Config{
		Logger:              logger,
		ScheduleHandler:     handlers.NewScheduleHandler(runner, reconciler, logger.Component("http")),
		AppointmentsHandler: handlers.NewAppointmentsHandler(repo, runner, loc, logger.Component("http")),
		AvailabilityHandler: handlers.NewAvailabilityHandler(repo, snapshotCache, runner, logger.Component("http")),
		PatientsHandler:     handlers.NewPatientsHandler(repo, logger.Component("http")),
		StatsHandler:        handlers.NewStatsHandler(prometheus.DefaultGatherer, logger.Component("http")),
		LiveHandler:         ws.NewLiveHandler(runner, logger.Component("ws")),
		MetricsHandler:      promhttp.Handler(),
		ProviderJWTSecret:   cfg.ProviderJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
