package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/healthmed/booking-service/internal/api"
	"github.com/healthmed/booking-service/internal/availability"
	"github.com/healthmed/booking-service/internal/booking"
	"github.com/healthmed/booking-service/internal/config"
	"github.com/healthmed/booking-service/internal/db"
	"github.com/healthmed/booking-service/internal/logging"
	"github.com/healthmed/booking-service/internal/metrics"
	"github.com/healthmed/booking-service/internal/notify"
	redisclient "github.com/healthmed/booking-service/internal/redis"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Infow("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatalw("postgres connection error", "error", err)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatalw("redis connection error", "error", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warnw("error closing redis", "error", err)
		}
	}()
	logger.Info("connected to Redis")

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	store := booking.NewPgStore(pgPool, cfg.DependencyRetries, cfg.RetryBackoff)

	gateway := availability.NewCachedGateway(
		availability.NewHTTPGateway(cfg.AvailabilityURL, cfg.DependencyTimeout, cfg.DependencyRetries, cfg.RetryBackoff, logger),
		rdb,
		cfg.CacheTTL,
		bookingMetrics,
		logger,
	)

	var notifier notify.Notifier
	if cfg.SendGridAPIKey != "" {
		notifier = notify.NewSendGridNotifier(cfg.SendGridAPIKey, cfg.SendGridFrom, cfg.SendGridName, logger)
	} else {
		logger.Warn("SENDGRID_API_KEY not set, using stub notifier")
		notifier = notify.NewStubNotifier(logger)
	}

	svc := booking.NewService(store, gateway, notifier, bookingMetrics, logger, cfg)

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		PgPool:   pgPool,
		Redis:    rdb,
		Registry: registry,
		Logger:   logger,
		Env:      cfg.Env,
		Version:  version,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Fatalw("http server error", "error", err)
	case <-rootCtx.Done():
	}

	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("graceful shutdown failed", "error", err)
	}
}
