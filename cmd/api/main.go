package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courtsync/internal/api"
	"courtsync/internal/app"
	"courtsync/internal/config"
	"courtsync/internal/logger"
	"courtsync/internal/obs"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		logger.Fatal("Failed to init tracing", "error", err)
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		logger.Fatal("Failed to start", "error", err)
	}

	server := api.NewServer(a)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-errCh:
		if err != nil {
			log.Error("Server failed", "error", err)
		}
	}

	// Graceful shutdown с таймаутом
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("Failed to flush traces", "error", err)
	}

	log.Info("Server stopped")
	os.Exit(0)
}
