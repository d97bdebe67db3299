package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	apperrors "minischeduler/internal/errors"
	"minischeduler/internal/logger"
	"minischeduler/internal/messaging"
	"minischeduler/internal/metrics"
	"minischeduler/internal/models"
)

type ReservationOptions struct {
	// Location is the zone calendar months are computed in.
	Location *time.Location
	// CountRefused makes refused reservations occupy their month.
	CountRefused bool
	Now          func() time.Time
	Metrics      *metrics.Metrics
	Summaries    SummaryCache
}

// ReservationService is the reservation workflow: creation against the
// ledger and the monthly rule, owner cancellation and organizer decisions.
type ReservationService struct {
	ledger    TicketLedger
	store     ReservationStore
	events    EventCatalog
	tx        Transactor
	publisher messaging.Publisher

	loc          *time.Location
	countRefused bool
	now          func() time.Time
	metrics      *metrics.Metrics
	summaries    SummaryCache
}

func NewReservationService(ledger TicketLedger, store ReservationStore, events EventCatalog, tx Transactor, publisher messaging.Publisher, opts ReservationOptions) *ReservationService {
	s := &ReservationService{
		ledger:       ledger,
		store:        store,
		events:       events,
		tx:           tx,
		publisher:    publisher,
		loc:          opts.Location,
		countRefused: opts.CountRefused,
		now:          opts.Now,
		metrics:      opts.Metrics,
		summaries:    opts.Summaries,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.publisher == nil {
		s.publisher = messaging.Noop{}
	}
	return s
}

// applied collects what the store reported while applying a plan.
type applied struct {
	reservation models.Reservation
	balance     int
}

func (s *ReservationService) apply(ctx context.Context, p plan) (applied, error) {
	out := applied{reservation: p.reservation}
	for _, e := range p.effects {
		var err error
		switch e.kind {
		case effectDebit:
			out.balance, err = s.ledger.Debit(ctx, e.userID)
		case effectCredit:
			out.balance, err = s.ledger.Credit(ctx, e.userID)
		case effectInsert:
			res := e.reservation
			_, err = s.store.Insert(ctx, &res)
			out.reservation = res
		case effectUpdateStatus:
			at := s.now()
			if e.reservation.DecidedAt != nil {
				at = *e.reservation.DecidedAt
			}
			err = s.store.UpdateStatus(ctx, e.reservation.ID, e.reservation.Status, at)
		case effectDelete:
			err = s.store.Delete(ctx, e.reservation.ID)
		default:
			err = fmt.Errorf("unknown effect %d", e.kind)
		}
		if err != nil {
			return applied{}, fmt.Errorf("%s: %w", e.kind, err)
		}
	}
	return out, nil
}

// Create reserves eventID at scheduleStart for userID, consuming one ticket.
func (s *ReservationService) Create(ctx context.Context, userID, eventID int64, scheduleStart time.Time) (*models.Reservation, error) {
	out, err := s.create(ctx, userID, eventID, scheduleStart)
	s.finish(ctx, metrics.OpCreate, err, models.EventReservationCreated, out, 0,
		"owner_id", userID, "event_id", eventID)
	if err != nil {
		return nil, err
	}
	return &out.reservation, nil
}

func (s *ReservationService) create(ctx context.Context, userID, eventID int64, scheduleStart time.Time) (applied, error) {
	if scheduleStart.IsZero() {
		return applied{}, apperrors.Malformed("schedule_start is required")
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return applied{}, err
	}
	if !withinSchedule(event, scheduleStart) {
		return applied{}, apperrors.Malformed("schedule_start is outside the event schedule")
	}

	var out applied
	err = s.tx.WithUserLock(ctx, userID, func(ctx context.Context) error {
		account, err := s.ledger.Account(ctx, userID)
		if err != nil {
			return err
		}
		existing, err := s.store.ListByUser(ctx, userID)
		if err != nil {
			return err
		}

		p, err := planCreate(createInput{
			userID:        userID,
			eventID:       eventID,
			scheduleStart: scheduleStart,
			month:         models.YearMonthOf(scheduleStart, s.loc),
			account:       account,
			existing:      existing,
			countRefused:  s.countRefused,
			now:           s.now(),
		})
		if err != nil {
			return err
		}

		out, err = s.apply(ctx, p)
		return err
	})
	return out, err
}

// withinSchedule reports whether at falls in the event's window, bounds
// included. An event without an end only admits its start.
func withinSchedule(event *models.Event, at time.Time) bool {
	end := event.ScheduleEnd
	if end.IsZero() {
		end = event.ScheduleStart
	}
	return !at.Before(event.ScheduleStart) && !at.After(end)
}

// Cancel deletes a pending reservation on behalf of its owner and returns the ticket.
func (s *ReservationService) Cancel(ctx context.Context, reservationID, requesterID int64) error {
	out, err := s.cancel(ctx, reservationID, requesterID)
	s.finish(ctx, metrics.OpCancel, err, models.EventReservationCancelled, out, 0,
		"reservation_id", reservationID, "requester_id", requesterID)
	return err
}

func (s *ReservationService) cancel(ctx context.Context, reservationID, requesterID int64) (applied, error) {
	snapshot, err := s.store.Get(ctx, reservationID)
	if err != nil {
		return applied{}, err
	}

	var out applied
	err = s.tx.WithUserLock(ctx, snapshot.UserID, func(ctx context.Context) error {
		current, err := s.store.Get(ctx, reservationID)
		if err != nil {
			return err
		}
		p, err := planCancel(current, requesterID)
		if err != nil {
			return err
		}
		out, err = s.apply(ctx, p)
		return err
	})
	return out, err
}

// Decide applies the organizer's verdict to a pending reservation.
// Refusal returns the ticket to the user.
func (s *ReservationService) Decide(ctx context.Context, reservationID, deciderID int64, decision models.Decision) (*models.Reservation, error) {
	out, organizerID, err := s.decide(ctx, reservationID, deciderID, decision)
	subject := models.EventReservationAccepted
	if decision == models.DecisionRefuse {
		subject = models.EventReservationRefused
	}
	s.finish(ctx, metrics.OpDecide, err, subject, out, organizerID,
		"reservation_id", reservationID, "decider_id", deciderID, "decision", decision.String())
	if err != nil {
		return nil, err
	}
	return &out.reservation, nil
}

func (s *ReservationService) decide(ctx context.Context, reservationID, deciderID int64, decision models.Decision) (applied, int64, error) {
	snapshot, err := s.store.Get(ctx, reservationID)
	if err != nil {
		return applied{}, 0, err
	}
	organizerID, err := s.events.OrganizerOf(ctx, snapshot.EventID)
	if err != nil {
		return applied{}, 0, err
	}

	var out applied
	err = s.tx.WithUserLock(ctx, snapshot.UserID, func(ctx context.Context) error {
		current, err := s.store.Get(ctx, reservationID)
		if err != nil {
			return err
		}
		p, err := planDecide(current, organizerID, deciderID, decision, s.now())
		if err != nil {
			return err
		}
		out, err = s.apply(ctx, p)
		if errors.Is(err, apperrors.ErrIllegalTransition) {
			return apperrors.ErrAlreadyDecided
		}
		return err
	})
	return out, organizerID, err
}

// finish records the outcome of an operation and announces committed ones.
func (s *ReservationService) finish(ctx context.Context, op string, err error, subject string, out applied, organizerID int64, attrs ...any) {
	s.metrics.RecordOutcome(op, err)
	log := logger.WithContext(ctx).With("operation", op)

	if err != nil {
		log = log.With(attrs...)
		if apperrors.KindOf(err) == apperrors.KindStorageFailure {
			log.Error("Reservation operation failed", "error", err)
		} else {
			log.Info("Reservation operation rejected", "reason", apperrors.ReasonOf(err), "code", apperrors.KindOf(err))
		}
		return
	}
	log = log.With(
		"reservation_id", out.reservation.ID,
		"owner_id", out.reservation.UserID,
		"event_id", out.reservation.EventID)
	log.Info("Reservation operation committed", "status", out.reservation.Status, "available_tickets", out.balance)

	if organizerID == 0 {
		if id, lookupErr := s.events.OrganizerOf(ctx, out.reservation.EventID); lookupErr == nil {
			organizerID = id
		}
	}
	if s.summaries != nil && organizerID != 0 {
		s.summaries.InvalidateSummary(ctx, organizerID)
	}

	event := models.ReservationEvent{
		ReservationID:    out.reservation.ID,
		UserID:           out.reservation.UserID,
		EventID:          out.reservation.EventID,
		OrganizerID:      organizerID,
		Status:           out.reservation.Status,
		ScheduleStart:    out.reservation.ScheduleStart,
		AvailableTickets: out.balance,
		Timestamp:        s.now(),
	}
	if err := s.publisher.Publish(subject, event); err != nil {
		// Log error but don't fail the operation
		log.Error("Failed to publish reservation event", "error", err, "subject", subject)
	}
}

// Balance returns the number of tickets userID may still spend.
func (s *ReservationService) Balance(ctx context.Context, userID int64) (int, error) {
	return s.ledger.Balance(ctx, userID)
}

func (s *ReservationService) Account(ctx context.Context, userID int64) (models.TicketAccount, error) {
	return s.ledger.Account(ctx, userID)
}

// ListByUser returns userID's reservations ordered by schedule, optionally
// restricted to one calendar month.
func (s *ReservationService) ListByUser(ctx context.Context, userID int64, month *models.YearMonth) ([]models.Reservation, error) {
	all, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]models.Reservation, 0, len(all))
	for _, r := range all {
		if month != nil && r.ScheduleMonth != month.String() {
			continue
		}
		result = append(result, r)
	}
	sortBySchedule(result)
	return result, nil
}

// ListByEvent is the organizer view of an event's reservations.
func (s *ReservationService) ListByEvent(ctx context.Context, eventID, callerID int64) ([]models.Reservation, error) {
	organizerID, err := s.events.OrganizerOf(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if organizerID != callerID {
		return nil, apperrors.ErrNotOrganizer
	}

	result, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	sortBySchedule(result)
	return result, nil
}

// Summary counts reservations across organizerID's events.
func (s *ReservationService) Summary(ctx context.Context, organizerID int64) (models.ProgressSummary, error) {
	if s.summaries != nil {
		if cached, ok := s.summaries.GetSummary(ctx, organizerID); ok {
			return cached, nil
		}
	}

	summary, err := s.store.CountByOrganizer(ctx, organizerID)
	if err != nil {
		return models.ProgressSummary{}, err
	}
	if s.summaries != nil {
		s.summaries.SetSummary(ctx, summary)
	}
	return summary, nil
}

func sortBySchedule(list []models.Reservation) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].ScheduleStart.Equal(list[j].ScheduleStart) {
			return list[i].ID < list[j].ID
		}
		return list[i].ScheduleStart.Before(list[j].ScheduleStart)
	})
}
