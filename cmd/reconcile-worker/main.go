package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/healthmed/booking-service/internal/availability"
	"github.com/healthmed/booking-service/internal/booking"
	"github.com/healthmed/booking-service/internal/config"
	"github.com/healthmed/booking-service/internal/db"
	"github.com/healthmed/booking-service/internal/logging"
	"github.com/healthmed/booking-service/internal/metrics"
)

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

	logger.Infow("reconcile-worker starting up",
		"env", cfg.Env, "interval", cfg.WorkerInterval.String(), "window", cfg.ReconcileWindow.String())

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

	store := booking.NewPgStore(pgPool, cfg.DependencyRetries, cfg.RetryBackoff)
	gateway := availability.NewHTTPGateway(cfg.AvailabilityURL, cfg.DependencyTimeout, cfg.DependencyRetries, cfg.RetryBackoff, logger)
	reconciler := booking.NewReconciler(store, gateway, metrics.NewBookingMetrics(nil), logger, cfg.ReconcileWindow)

	// Run once at startup
	runOnce(rootCtx, reconciler, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping reconcile worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, reconciler, logger)
		}
	}
}

func runOnce(ctx context.Context, r *booking.Reconciler, logger *zap.SugaredLogger) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := r.Run(runCtx); err != nil {
		logger.Warnw("reconcile run error", "error", err)
	}
}
