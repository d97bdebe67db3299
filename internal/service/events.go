package service

import (
	"context"
	"strings"
	"time"

	apperrors "minischeduler/internal/errors"
	"minischeduler/internal/logger"
	"minischeduler/internal/models"
	"minischeduler/internal/repository"
)

type EventOptions struct {
	// Index may be nil, in which case keyword search falls back to a
	// title and organizer name match in the store.
	Index     EventIndex
	Summaries SummaryCache
	Location  *time.Location
}

// EventService publishes and looks up events.
type EventService struct {
	events    EventStore
	users     UserStore
	index     EventIndex
	summaries SummaryCache
	loc       *time.Location
}

// NewEventService builds the service. users resolves organizer names for
// the search index and may be nil.
func NewEventService(events EventStore, users UserStore, opts EventOptions) *EventService {
	s := &EventService{
		events:    events,
		users:     users,
		index:     opts.Index,
		summaries: opts.Summaries,
		loc:       opts.Location,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	return s
}

func validateEvent(req *models.CreateEventRequest) (string, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return "", apperrors.Malformed("title is required")
	}
	if req.ScheduleEnd.Before(req.ScheduleStart) {
		return "", apperrors.Malformed("schedule_end must not be before schedule_start")
	}
	if req.Capacity < 0 {
		return "", apperrors.Malformed("capacity must not be negative")
	}
	return title, nil
}

func (s *EventService) Create(ctx context.Context, caller models.Caller, req *models.CreateEventRequest) (*models.Event, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	title, err := validateEvent(req)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		OrganizerID:   caller.UserID,
		Title:         title,
		Description:   req.Description,
		ScheduleStart: req.ScheduleStart,
		ScheduleEnd:   req.ScheduleEnd,
		Capacity:      req.Capacity,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.reindex(ctx, event)
	s.invalidate(ctx, event.OrganizerID)
	return event, nil
}

// Update replaces the title, description, window and capacity of an event
// owned by caller. Existing reservations keep their schedule.
func (s *EventService) Update(ctx context.Context, caller models.Caller, id int64, req *models.CreateEventRequest) (*models.Event, error) {
	if _, err := s.authored(ctx, caller, id); err != nil {
		return nil, err
	}
	title, err := validateEvent(req)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		ID:            id,
		Title:         title,
		Description:   req.Description,
		ScheduleStart: req.ScheduleStart,
		ScheduleEnd:   req.ScheduleEnd,
		Capacity:      req.Capacity,
	}
	if err := s.events.Update(ctx, event); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("Event updated", "event_id", id, "organizer_id", event.OrganizerID)
	s.reindex(ctx, event)
	return event, nil
}

// Delete removes an event owned by caller. It fails with
// ErrEventHasReservations until every reservation on it is refused.
func (s *EventService) Delete(ctx context.Context, caller models.Caller, id int64) error {
	event, err := s.authored(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}

	log := logger.WithContext(ctx)
	log.Info("Event deleted", "event_id", id, "organizer_id", event.OrganizerID)
	if s.index != nil {
		if err := s.index.DeleteEvent(ctx, id); err != nil {
			log.Error("Failed to remove event from index", "error", err, "event_id", id)
		}
	}
	s.invalidate(ctx, event.OrganizerID)
	return nil
}

// authored loads event id and checks that caller organizes it.
func (s *EventService) authored(ctx context.Context, caller models.Caller, id int64) (*models.Event, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != caller.UserID {
		return nil, apperrors.ErrNotAuthor
	}
	return event, nil
}

func (s *EventService) reindex(ctx context.Context, event *models.Event) {
	if s.index == nil {
		return
	}
	log := logger.WithContext(ctx)

	var organizerName string
	if s.users != nil {
		organizer, err := s.users.GetByID(ctx, event.OrganizerID)
		if err != nil {
			log.Warn("Indexing event without organizer name", "error", err, "event_id", event.ID)
		} else {
			organizerName = organizer.FullName
		}
	}
	if err := s.index.IndexEvent(ctx, event, organizerName); err != nil {
		log.Error("Failed to index event", "error", err, "event_id", event.ID)
	}
}

func (s *EventService) invalidate(ctx context.Context, organizerID int64) {
	if s.summaries != nil {
		s.summaries.InvalidateSummary(ctx, organizerID)
	}
}

func (s *EventService) Get(ctx context.Context, id int64) (*models.Event, error) {
	return s.events.GetByID(ctx, id)
}

// List returns events in schedule order, optionally limited to one month
// and to events whose title or organizer name matches keyword.
func (s *EventService) List(ctx context.Context, month *models.YearMonth, keyword string) ([]models.Event, error) {
	var filter repository.EventFilter
	if month != nil {
		filter.From = time.Date(month.Year, month.Month, 1, 0, 0, 0, 0, s.loc)
		filter.To = filter.From.AddDate(0, 1, 0)
	}

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return s.events.List(ctx, filter)
	}

	if s.index != nil {
		ids, err := s.index.SearchEvents(ctx, keyword)
		if err == nil {
			found, err := s.events.GetByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			return inWindow(found, filter), nil
		}
		logger.WithContext(ctx).Warn("Event search failed, falling back to store match", "error", err)
	}

	filter.Keyword = keyword
	return s.events.List(ctx, filter)
}

// ListMine returns the events organized by organizerID.
func (s *EventService) ListMine(ctx context.Context, organizerID int64) ([]models.Event, error) {
	return s.events.List(ctx, repository.EventFilter{OrganizerID: organizerID})
}

func inWindow(events []models.Event, filter repository.EventFilter) []models.Event {
	if filter.From.IsZero() {
		return events
	}
	result := events[:0]
	for _, e := range events {
		if !e.ScheduleStart.Before(filter.From) && e.ScheduleStart.Before(filter.To) {
			result = append(result, e)
		}
	}
	return result
}
