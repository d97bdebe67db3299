package main

import (
	"os"
	"os/signal"
	"syscall"

	"minischeduler/internal/config"
	"minischeduler/internal/consumers"
	"minischeduler/internal/logger"
	"minischeduler/internal/models"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	logger.Get().Info("Starting consumers service")

	cfg.NATS.ClientID = "scheduler-consumers"

	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		logger.Fatal("Failed to create consumer service", "error", err)
	}

	if err := consumerService.Start(models.ReservationSubjects); err != nil {
		consumerService.Shutdown()
		logger.Fatal("Failed to start consumers", "error", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	consumerService.Shutdown()
	logger.Get().Info("Consumers service stopped")
}
