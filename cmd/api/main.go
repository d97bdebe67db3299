package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minischeduler/internal/api"
	"minischeduler/internal/config"
	"minischeduler/internal/logger"
	"minischeduler/internal/validation"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) > 1 && os.Args[1] == "validate" {
		if err := validation.Run(context.Background(), validation.ConfigFromEnv()); err != nil {
			logger.Fatal("Validation failed", "error", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := api.NewServer(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize server", "error", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.GetRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Get().Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Get().Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Get().Error("Server forced to shutdown", "error", err)
	}
	server.Cleanup()

	logger.Get().Info("Server stopped")
}
