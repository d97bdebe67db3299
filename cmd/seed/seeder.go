package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"minischeduler/internal/models"
	"minischeduler/internal/service"
)

var eventKinds = []string{"Concert", "Fan Meeting", "Musical", "Showcase", "Talk Show", "Exhibition"}

type SeedOptions struct {
	Organizers int
	Users      int
	// EventsPerOrganizer events are spread over the coming Months months.
	EventsPerOrganizer int
	Months             int
	Password           string
	Prefix             string
	Concurrency        int
	DryRun             bool
}

type SeedResult struct {
	Organizers []int64
	Users      []int64
	Events     []int64
}

type Seeder struct {
	services *service.Services
	now      func() time.Time
	rnd      *rand.Rand
}

func NewSeeder(services *service.Services, now func() time.Time) *Seeder {
	if now == nil {
		now = time.Now
	}
	return &Seeder{
		services: services,
		now:      now,
		rnd:      rand.New(rand.NewSource(now().UnixNano())),
	}
}

// Seed registers accounts and publishes events for every organizer.
func (s *Seeder) Seed(ctx context.Context, opts SeedOptions) (SeedResult, error) {
	if opts.Months <= 0 {
		opts.Months = 1
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	if opts.DryRun {
		slog.Info("[DRY RUN] Would seed",
			"organizers", opts.Organizers,
			"users", opts.Users,
			"events", opts.Organizers*opts.EventsPerOrganizer)
		return SeedResult{}, nil
	}

	var result SeedResult
	var err error
	if result.Organizers, err = s.register(ctx, opts, models.RoleAdmin, opts.Organizers); err != nil {
		return result, err
	}
	if result.Users, err = s.register(ctx, opts, models.RoleUser, opts.Users); err != nil {
		return result, err
	}

	for _, organizerID := range result.Organizers {
		caller := models.Caller{UserID: organizerID, Role: models.RoleAdmin}
		for i := 0; i < opts.EventsPerOrganizer; i++ {
			event, err := s.services.Events.Create(ctx, caller, s.randomEvent(i, opts.Months))
			if err != nil {
				return result, fmt.Errorf("create event for organizer %d: %w", organizerID, err)
			}
			result.Events = append(result.Events, event.ID)
		}
	}

	slog.Info("Seed completed",
		"organizers", len(result.Organizers),
		"users", len(result.Users),
		"events", len(result.Events))
	return result, nil
}

func (s *Seeder) register(ctx context.Context, opts SeedOptions, role models.Role, n int) ([]int64, error) {
	ids := make([]int64, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			user, err := s.services.Accounts.Register(ctx, &models.RegisterUserRequest{
				Email:    fmt.Sprintf("%s-%s-%d@seed.local", opts.Prefix, role, i+1),
				Password: opts.Password,
				FullName: fmt.Sprintf("Seed %s %d", role, i+1),
				Role:     string(role),
			})
			if err != nil {
				return fmt.Errorf("register %s %d: %w", role, i+1, err)
			}
			ids[i] = user.UserID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Seeder) randomEvent(i, months int) *models.CreateEventRequest {
	base := s.now().UTC()
	month := time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, i%months, 0)
	start := month.AddDate(0, 0, s.rnd.Intn(28)).Add(time.Duration(18+s.rnd.Intn(3)) * time.Hour)

	description := fmt.Sprintf("Seeded event #%d", i+1)
	return &models.CreateEventRequest{
		Title:         fmt.Sprintf("%s %s", eventKinds[s.rnd.Intn(len(eventKinds))], start.Format("Jan 2")),
		Description:   &description,
		ScheduleStart: start,
		ScheduleEnd:   start.Add(2 * time.Hour),
		Capacity:      50 + s.rnd.Intn(451),
	}
}
