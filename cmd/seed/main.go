package main

import (
	"context"
	"flag"

	"github.com/google/uuid"

	"minischeduler/internal/api"
	"minischeduler/internal/config"
	"minischeduler/internal/logger"
)

func main() {
	var opts SeedOptions
	flag.IntVar(&opts.Organizers, "organizers", 2, "Number of organizer accounts to create")
	flag.IntVar(&opts.Users, "users", 10, "Number of attendee accounts to create")
	flag.IntVar(&opts.EventsPerOrganizer, "events", 3, "Events to publish per organizer")
	flag.IntVar(&opts.Months, "months", 3, "Spread events over this many months starting now")
	flag.StringVar(&opts.Password, "password", "password123", "Password for every seeded account")
	flag.StringVar(&opts.Prefix, "prefix", "", "Email prefix (random when empty)")
	flag.IntVar(&opts.Concurrency, "concurrency", 4, "Parallel registrations")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "Show what would be generated without making changes")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if opts.Prefix == "" {
		opts.Prefix = uuid.NewString()[:8]
	}

	ctx := context.Background()
	server, err := api.NewServer(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize backends", "error", err)
	}
	defer server.Cleanup()

	if _, err := NewSeeder(server.Services(), nil).Seed(ctx, opts); err != nil {
		server.Cleanup()
		logger.Fatal("Seeding failed", "error", err)
	}
}
