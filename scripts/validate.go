package main

import (
	"context"
	"flag"

	"minischeduler/internal/logger"
	"minischeduler/internal/validation"
)

func main() {
	cfg := validation.ConfigFromEnv()
	flag.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL for API validation")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	flag.Parse()

	logger.Init("info", "text")
	logger.Get().Info("Starting API validation", "url", cfg.BaseURL)

	if err := validation.Run(context.Background(), cfg); err != nil {
		logger.Fatal("Validation failed", "error", err)
	}

	logger.Get().Info("Validation passed")
}
