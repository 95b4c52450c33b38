package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"courtsync/cmd/consumers/jobs"
	"courtsync/internal/app"
	"courtsync/internal/config"
	"courtsync/internal/consumers"
	"courtsync/internal/logger"
	"courtsync/internal/obs"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}

	// Override NATS client ID for consumers
	cfg.NATS.ClientID = cfg.NATS.ClientID + "-consumers"

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()
	log.Info("Starting consumers service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.Tracing.ServiceName+"-consumers", cfg.Tracing.Endpoint)
	if err != nil {
		logger.Fatal("Failed to init tracing", "error", err)
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		logger.Fatal("Failed to start", "error", err)
	}

	consumerService := consumers.NewConsumerService(a)
	if err := consumerService.Start(); err != nil {
		a.Close()
		logger.Fatal("Failed to start consumers", "error", err)
	}

	var job *jobs.SyncJob
	if cfg.Scheduler.Enabled {
		job = jobs.NewSyncJob(a.Services.Courts, a.Services.Bookings, jobs.Config{
			Interval:   cfg.Scheduler.Interval,
			ActiveOnly: cfg.Scheduler.ActiveOnly,
			DaysBack:   cfg.Scheduler.BookingDaysBack,
			DaysAhead:  cfg.Scheduler.BookingDaysAhead,
			Location:   cfg.Location(),
		}, log)
		job.Start(ctx)
	}

	log.Info("Consumers service started successfully")
	<-ctx.Done()
	log.Info("Shutting down consumers service...")

	if job != nil {
		job.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumerService.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("Failed to flush traces", "error", err)
	}

	log.Info("Consumers service stopped")
}
