package service

import (
	"time"

	"minischeduler/internal/messaging"
	"minischeduler/internal/metrics"
)

// Backend is the storage a deployment runs on: PostgreSQL repositories or
// the in-memory store.
type Backend struct {
	Users        UserStore
	Ledger       TicketLedger
	Reservations ReservationStore
	Events       EventStore
	Transactor   Transactor
}

// Dependencies are the optional collaborators. Nil fields are skipped.
type Dependencies struct {
	Publisher messaging.Publisher
	Index     EventIndex
	Auth      AuthCache
	Summaries SummaryCache
	Metrics   *metrics.Metrics
}

type Settings struct {
	Location     *time.Location
	CountRefused bool
	Now          func() time.Time
}

type Services struct {
	Accounts     *AccountService
	Events       *EventService
	Reservations *ReservationService
}

func NewServices(backend Backend, deps Dependencies, settings Settings) *Services {
	return &Services{
		Accounts: NewAccountService(backend.Users, deps.Auth, settings.Location, settings.Now),
		Events: NewEventService(backend.Events, backend.Users, EventOptions{
			Index:     deps.Index,
			Summaries: deps.Summaries,
			Location:  settings.Location,
		}),
		Reservations: NewReservationService(
			backend.Ledger,
			backend.Reservations,
			backend.Events,
			backend.Transactor,
			deps.Publisher,
			ReservationOptions{
				Location:     settings.Location,
				CountRefused: settings.CountRefused,
				Now:          settings.Now,
				Metrics:      deps.Metrics,
				Summaries:    deps.Summaries,
			}),
	}
}
