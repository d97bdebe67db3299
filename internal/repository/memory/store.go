// Package memory is an in-process implementation of the ledger, the
// reservation store and the event catalog. Writes made inside WithUserLock
// are journaled and undone when the unit fails.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "minischeduler/internal/errors"
	"minischeduler/internal/models"
	"minischeduler/internal/repository"
)

type Store struct {
	mu           sync.Mutex
	users        map[int64]*models.User
	emails       map[string]int64
	events       map[int64]models.Event
	reservations map[int64]models.Reservation

	nextUserID        int64
	nextEventID       int64
	nextReservationID int64

	locks *keyedMutex
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:        make(map[int64]*models.User),
		emails:       make(map[string]int64),
		events:       make(map[int64]models.Event),
		reservations: make(map[int64]models.Reservation),
		locks:        newKeyedMutex(),
		now:          time.Now,
	}
}

type journalKey struct{}

type journal struct {
	userID int64
	undo   []func()
}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(journalKey{}).(*journal)
	return j
}

// record registers an undo step. Callers hold s.mu.
func (s *Store) record(ctx context.Context, undo func()) {
	if j := journalFrom(ctx); j != nil {
		j.undo = append(j.undo, undo)
	}
}

func (s *Store) rollback(j *journal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// WithUserLock serializes fn with every other unit for userID and undoes
// its writes if it fails or panics.
func (s *Store) WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) (err error) {
	if j := journalFrom(ctx); j != nil && j.userID == userID {
		return fn(ctx)
	}

	s.mu.Lock()
	_, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		return apperrors.ErrUserNotFound
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	j := &journal{userID: userID}
	defer func() {
		if p := recover(); p != nil {
			s.rollback(j)
			panic(p)
		}
		if err != nil {
			s.rollback(j)
		}
	}()

	return fn(context.WithValue(ctx, journalKey{}, j))
}

// Users

func (s *Store) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := s.emails[email]; taken {
		return apperrors.ErrEmailTaken
	}

	s.nextUserID++
	user.UserID = s.nextUserID
	user.RegisteredAt = s.now()

	stored := *user
	s.users[user.UserID] = &stored
	s.emails[email] = user.UserID

	id := user.UserID
	s.record(ctx, func() {
		delete(s.users, id)
		delete(s.emails, email)
	})
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

// Update stores the profile fields of user: full name and password hash.
func (s *Store) Update(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user.UserID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	previous := *u
	u.FullName = user.FullName
	u.PasswordHash = user.PasswordHash
	s.record(ctx, func() { *u = previous })
	return nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	id, ok := s.emails[strings.ToLower(email)]
	s.mu.Unlock()
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return s.GetByID(ctx, id)
}

// Ledger

func (s *Store) Debit(ctx context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, apperrors.ErrUserNotFound
	}
	if u.AvailableTickets <= 0 {
		return 0, apperrors.ErrInsufficientTickets
	}

	u.AvailableTickets--
	u.UsedTickets++
	s.record(ctx, func() {
		u.AvailableTickets++
		u.UsedTickets--
	})
	return u.AvailableTickets, nil
}

func (s *Store) Credit(ctx context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, apperrors.ErrUserNotFound
	}

	u.AvailableTickets++
	s.record(ctx, func() { u.AvailableTickets-- })
	return u.AvailableTickets, nil
}

func (s *Store) Balance(ctx context.Context, userID int64) (int, error) {
	account, err := s.Account(ctx, userID)
	return account.AvailableTickets, err
}

func (s *Store) Account(ctx context.Context, userID int64) (models.TicketAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return models.TicketAccount{}, apperrors.ErrUserNotFound
	}
	return u.Account(), nil
}

// Reservations

func (s *Store) Insert(ctx context.Context, res *models.Reservation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[res.EventID]; !ok {
		return 0, apperrors.ErrEventNotFound
	}
	if res.Status.Active() {
		for _, other := range s.reservations {
			if other.UserID == res.UserID && other.ScheduleMonth == res.ScheduleMonth && other.Status.Active() {
				return 0, apperrors.ErrDuplicateMonthly
			}
		}
	}

	s.nextReservationID++
	res.ID = s.nextReservationID
	s.reservations[res.ID] = *res

	id := res.ID
	s.record(ctx, func() { delete(s.reservations, id) })
	return id, nil
}

func (s *Store) Get(ctx context.Context, id int64) (models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok {
		return models.Reservation{}, apperrors.ErrReservationNotFound
	}
	return res, nil
}

func (s *Store) ListByUser(ctx context.Context, userID int64) ([]models.Reservation, error) {
	return s.filterReservations(func(r models.Reservation) bool { return r.UserID == userID }), nil
}

func (s *Store) ListByEvent(ctx context.Context, eventID int64) ([]models.Reservation, error) {
	return s.filterReservations(func(r models.Reservation) bool { return r.EventID == eventID }), nil
}

func (s *Store) filterReservations(keep func(models.Reservation) bool) []models.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Reservation
	for _, r := range s.reservations {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) UpdateStatus(ctx context.Context, id int64, status models.ReservationStatus, at time.Time) error {
	if !status.Terminal() {
		return apperrors.New(apperrors.KindIllegalState, "reservation can only move to accepted or refused")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok {
		return apperrors.ErrReservationNotFound
	}
	if res.Status != models.StatusPending {
		return apperrors.ErrIllegalTransition
	}

	previous := res
	decidedAt := at
	res.Status = status
	res.DecidedAt = &decidedAt
	s.reservations[id] = res
	s.record(ctx, func() { s.reservations[id] = previous })
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok {
		return apperrors.ErrReservationNotFound
	}
	delete(s.reservations, id)
	s.record(ctx, func() { s.reservations[id] = res })
	return nil
}

func (s *Store) CountByOrganizer(ctx context.Context, organizerID int64) (models.ProgressSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := models.ProgressSummary{OrganizerID: organizerID}
	for _, e := range s.events {
		if e.OrganizerID == organizerID {
			summary.Events++
		}
	}
	for _, r := range s.reservations {
		e, ok := s.events[r.EventID]
		if !ok || e.OrganizerID != organizerID {
			continue
		}
		switch r.Status {
		case models.StatusPending:
			summary.Pending++
		case models.StatusAccepted:
			summary.Accepted++
		case models.StatusRefused:
			summary.Refused++
		}
	}
	return summary, nil
}

// Events

// Events is the catalog view of the store.
type Events struct {
	s *Store
}

func (s *Store) Events() *Events {
	return &Events{s: s}
}

func (v *Events) Create(ctx context.Context, event *models.Event) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEventID++
	event.ID = s.nextEventID
	event.CreatedAt = s.now()
	s.events[event.ID] = *event

	id := event.ID
	s.record(ctx, func() { delete(s.events, id) })
	return nil
}

func (v *Events) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	return &e, nil
}

func (v *Events) Update(ctx context.Context, event *models.Event) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.events[event.ID]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	event.OrganizerID = previous.OrganizerID
	event.CreatedAt = previous.CreatedAt
	s.events[event.ID] = *event

	id := event.ID
	s.record(ctx, func() { s.events[id] = previous })
	return nil
}

// Delete removes an event together with its refused reservations. Events
// that still hold pending or accepted reservations are kept.
func (v *Events) Delete(ctx context.Context, id int64) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	var dropped []models.Reservation
	for _, r := range s.reservations {
		if r.EventID != id {
			continue
		}
		if r.Status.Active() {
			return apperrors.ErrEventHasReservations
		}
		dropped = append(dropped, r)
	}

	delete(s.events, id)
	for _, r := range dropped {
		delete(s.reservations, r.ID)
	}
	s.record(ctx, func() {
		s.events[id] = event
		for _, r := range dropped {
			s.reservations[r.ID] = r
		}
	})
	return nil
}

func (v *Events) Exists(ctx context.Context, id int64) (bool, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.events[id]
	return ok, nil
}

func (v *Events) OrganizerOf(ctx context.Context, id int64) (int64, error) {
	e, err := v.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return e.OrganizerID, nil
}

func (v *Events) List(ctx context.Context, filter repository.EventFilter) ([]models.Event, error) {
	keyword := strings.ToLower(filter.Keyword)
	return v.filter(func(e models.Event) bool {
		if !filter.From.IsZero() && e.ScheduleStart.Before(filter.From) {
			return false
		}
		if !filter.To.IsZero() && !e.ScheduleStart.Before(filter.To) {
			return false
		}
		if filter.OrganizerID != 0 && e.OrganizerID != filter.OrganizerID {
			return false
		}
		if keyword == "" || strings.Contains(strings.ToLower(e.Title), keyword) {
			return true
		}
		// filter runs under s.mu
		organizer, ok := v.s.users[e.OrganizerID]
		return ok && strings.Contains(strings.ToLower(organizer.FullName), keyword)
	}), nil
}

func (v *Events) GetByIDs(ctx context.Context, ids []int64) ([]models.Event, error) {
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return v.filter(func(e models.Event) bool { return wanted[e.ID] }), nil
}

func (v *Events) filter(keep func(models.Event) bool) []models.Event {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Event
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduleStart.Equal(out[j].ScheduleStart) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduleStart.Before(out[j].ScheduleStart)
	})
	return out
}
