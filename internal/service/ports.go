package service

import (
	"context"
	"time"

	"minischeduler/internal/models"
	"minischeduler/internal/repository"
)

// TicketLedger owns the per-user ticket counters.
type TicketLedger interface {
	Debit(ctx context.Context, userID int64) (int, error)
	Credit(ctx context.Context, userID int64) (int, error)
	Balance(ctx context.Context, userID int64) (int, error)
	Account(ctx context.Context, userID int64) (models.TicketAccount, error)
}

// ReservationStore persists reservations. UpdateStatus only moves a
// Pending reservation and reports apperrors.ErrIllegalTransition otherwise;
// Insert reports apperrors.ErrDuplicateMonthly when the user already holds
// an active reservation in the same month.
type ReservationStore interface {
	Insert(ctx context.Context, res *models.Reservation) (int64, error)
	Get(ctx context.Context, id int64) (models.Reservation, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Reservation, error)
	ListByEvent(ctx context.Context, eventID int64) ([]models.Reservation, error)
	UpdateStatus(ctx context.Context, id int64, status models.ReservationStatus, at time.Time) error
	Delete(ctx context.Context, id int64) error
	CountByOrganizer(ctx context.Context, organizerID int64) (models.ProgressSummary, error)
}

// EventCatalog is the read side of the events the workflow references.
type EventCatalog interface {
	Exists(ctx context.Context, id int64) (bool, error)
	OrganizerOf(ctx context.Context, id int64) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
}

// EventStore is the full catalog used by the organizer-facing operations.
// Update keeps the stored organizer. Delete reports
// apperrors.ErrEventHasReservations while the event has pending or accepted
// reservations and removes refused ones with the event.
type EventStore interface {
	EventCatalog
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter repository.EventFilter) ([]models.Event, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.Event, error)
}

// UserStore holds accounts. Emails are unique; Create reports
// apperrors.ErrEmailTaken for a second registration.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// Transactor runs fn as one atomic unit serialized with all other units
// for the same user.
type Transactor interface {
	WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error
}

// SummaryCache keeps organizer progress summaries for a short time.
type SummaryCache interface {
	GetSummary(ctx context.Context, organizerID int64) (models.ProgressSummary, bool)
	SetSummary(ctx context.Context, summary models.ProgressSummary)
	InvalidateSummary(ctx context.Context, organizerID int64)
}

// AuthCache remembers credential hashes so logins skip the database.
type AuthCache interface {
	GetAuth(ctx context.Context, email string) (models.AuthEntry, bool)
	SetAuth(ctx context.Context, email string, entry models.AuthEntry)
}

// EventIndex is the full-text index over event titles, descriptions and
// organizer names.
type EventIndex interface {
	IndexEvent(ctx context.Context, event *models.Event, organizerName string) error
	DeleteEvent(ctx context.Context, id int64) error
	SearchEvents(ctx context.Context, keyword string) ([]int64, error)
}
