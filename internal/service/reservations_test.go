package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	apperrors "minischeduler/internal/errors"
	"minischeduler/internal/metrics"
	"minischeduler/internal/models"
	"minischeduler/internal/repository/memory"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	events   []models.ReservationEvent
	err      error
}

func (p *recordingPublisher) Publish(subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	if e, ok := data.(models.ReservationEvent); ok {
		p.events = append(p.events, e)
	}
	return p.err
}

type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	svc       *ReservationService
	organizer int64
	event     int64
}

func newFixture(t *testing.T, opts ReservationOptions) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{store: store, publisher: &recordingPublisher{}, metrics: metrics.New()}
	opts.Metrics = f.metrics
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	f.svc = NewReservationService(store, store, store.Events(), store, f.publisher, opts)
	f.organizer = f.newUser(t, models.RoleAdmin, 0)
	f.event = f.newEvent(t, "Spring Concert")
	return f
}

var userSeq atomic.Int64

func (f *fixture) newUser(t *testing.T, role models.Role, tickets int) int64 {
	t.Helper()
	u := &models.User{
		Email:            fmt.Sprintf("%s-%d@example.com", role, userSeq.Add(1)),
		Role:             role,
		AvailableTickets: tickets,
		IsActive:         true,
	}
	require.NoError(t, f.store.Create(context.Background(), u))
	return u.UserID
}

func (f *fixture) newEvent(t *testing.T, title string) int64 {
	t.Helper()
	// A long-running event so reservations can land in any month of 2025-2026.
	e := &models.Event{
		OrganizerID:   f.organizer,
		Title:         title,
		ScheduleStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ScheduleEnd:   time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC),
		Capacity:      100,
	}
	require.NoError(t, f.store.Events().Create(context.Background(), e))
	return e.ID
}

func (f *fixture) account(t *testing.T, userID int64) models.TicketAccount {
	t.Helper()
	account, err := f.store.Account(context.Background(), userID)
	require.NoError(t, err)
	return account
}

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 19, 0, 0, 0, time.UTC)
}

func TestCreateDebitsOneTicket(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 3)

	res, err := f.svc.Create(ctx, user, f.event, at(2025, time.June, 10))
	require.NoError(t, err)

	assert.NotZero(t, res.ID)
	assert.Equal(t, models.StatusPending, res.Status)
	assert.Equal(t, "2025-06", res.ScheduleMonth)

	account := f.account(t, user)
	assert.Equal(t, 2, account.AvailableTickets)
	assert.Equal(t, 1, account.UsedTickets)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, models.EventReservationCreated, f.publisher.subjects[0])
	assert.Equal(t, f.organizer, f.publisher.events[0].OrganizerID)
	assert.Equal(t, 2, f.publisher.events[0].AvailableTickets)
}

func TestCreateWithoutTicketsLeavesBalance(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 0)

	_, err := f.svc.Create(ctx, user, f.event, at(2025, time.June, 10))
	assert.ErrorIs(t, err, apperrors.ErrInsufficientTickets)

	account := f.account(t, user)
	assert.Equal(t, 0, account.AvailableTickets)
	assert.Equal(t, 0, account.UsedTickets)

	list, err := f.svc.ListByUser(ctx, user, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, f.publisher.subjects)
}

func TestCreateUnknownEvent(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	user := f.newUser(t, models.RoleUser, 1)

	_, err := f.svc.Create(context.Background(), user, 999, at(2025, time.June, 10))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.Equal(t, 1, f.account(t, user).AvailableTickets)
}

func TestCreateRequiresScheduleStart(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	user := f.newUser(t, models.RoleUser, 1)

	_, err := f.svc.Create(context.Background(), user, f.event, time.Time{})
	assert.Equal(t, apperrors.KindMalformed, apperrors.KindOf(err))
}

func TestCreateOutsideEventSchedule(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 2)

	for _, start := range []time.Time{
		time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC),
		time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		_, err := f.svc.Create(ctx, user, f.event, start)
		assert.Equal(t, apperrors.KindMalformed, apperrors.KindOf(err), start)
	}
	assert.Equal(t, 2, f.account(t, user).AvailableTickets)
	assert.Empty(t, f.publisher.subjects)

	_, err := f.svc.Create(ctx, user, f.event, time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC))
	assert.NoError(t, err)
}

func TestMonthlyUniqueness(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 5)
	other := f.newEvent(t, "Fan Meeting")

	first, err := f.svc.Create(ctx, user, f.event, at(2025, time.March, 3))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, user, other, at(2025, time.March, 28))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateMonthly)

	_, err = f.svc.Decide(ctx, first.ID, f.organizer, models.DecisionAccept)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, user, other, at(2025, time.March, 1))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateMonthly)

	_, err = f.svc.Create(ctx, user, other, at(2025, time.April, 1))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, user, other, at(2026, time.March, 3))
	require.NoError(t, err)

	account := f.account(t, user)
	assert.Equal(t, 2, account.AvailableTickets)
	assert.Equal(t, 3, account.UsedTickets)
}

func TestMonthlyRuleAllCountsRefused(t *testing.T) {
	f := newFixture(t, ReservationOptions{CountRefused: true})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 3)

	res, err := f.svc.Create(ctx, user, f.event, at(2025, time.June, 10))
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, res.ID, f.organizer, models.DecisionRefuse)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, user, f.event, at(2025, time.June, 15))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateMonthly)
	assert.Equal(t, 3, f.account(t, user).AvailableTickets)
}

func TestMonthUsesConfiguredLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	f := newFixture(t, ReservationOptions{Location: seoul})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 3)

	// 2025-03-31 20:00 UTC is already April 1st in Seoul.
	res, err := f.svc.Create(ctx, user, f.event, time.Date(2025, 3, 31, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2025-04", res.ScheduleMonth)

	_, err = f.svc.Create(ctx, user, f.event, time.Date(2025, 4, 20, 10, 0, 0, 0, seoul))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateMonthly)

	_, err = f.svc.Create(ctx, user, f.event, time.Date(2025, 3, 31, 10, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
}

func TestConcurrentCreatesWithOneTicket(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	user := f.newUser(t, models.RoleUser, 1)
	events := []int64{f.event, f.newEvent(t, "Fan Meeting")}
	months := []time.Month{time.July, time.August}

	errs := make([]error, len(events))
	var g errgroup.Group
	for i := range events {
		g.Go(func() error {
			_, errs[i] = f.svc.Create(context.Background(), user, events[i], at(2025, months[i], 5))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrInsufficientTickets)
	}
	assert.Equal(t, 1, succeeded)

	account := f.account(t, user)
	assert.Equal(t, 0, account.AvailableTickets)
	assert.Equal(t, 1, account.UsedTickets)
}

func TestConcurrentCreatesNeverOverspend(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	user := f.newUser(t, models.RoleUser, 3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for month := time.January; month <= time.December; month++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Create(context.Background(), user, f.event, at(2025, month, 1)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	account := f.account(t, user)
	assert.Equal(t, 0, account.AvailableTickets)
	assert.Equal(t, 3, account.UsedTickets)
}

func TestConcurrentCreatesSameMonth(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	user := f.newUser(t, models.RoleUser, 5)

	g, ctx := errgroup.WithContext(context.Background())
	results := make([]error, 8)
	for i := range results {
		g.Go(func() error {
			_, results[i] = f.svc.Create(ctx, user, f.event, at(2025, time.May, i+1))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrDuplicateMonthly)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 4, f.account(t, user).AvailableTickets)
}

func TestDecideTwiceFailsAlreadyDecided(t *testing.T) {
	for _, tc := range []struct {
		name          string
		first, second models.Decision
		wantAvailable int
		wantStatus    models.ReservationStatus
	}{
		{"accept then refuse", models.DecisionAccept, models.DecisionRefuse, 2, models.StatusAccepted},
		{"refuse then accept", models.DecisionRefuse, models.DecisionAccept, 3, models.StatusRefused},
		{"refuse twice", models.DecisionRefuse, models.DecisionRefuse, 3, models.StatusRefused},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, ReservationOptions{})
			ctx := context.Background()
			user := f.newUser(t, models.RoleUser, 3)

			res, err := f.svc.Create(ctx, user, f.event, at(2025, time.June, 10))
			require.NoError(t, err)

			decided, err := f.svc.Decide(ctx, res.ID, f.organizer, tc.first)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, decided.Status)
			require.NotNil(t, decided.DecidedAt)

			_, err = f.svc.Decide(ctx, res.ID, f.organizer, tc.second)
			assert.ErrorIs(t, err, apperrors.ErrAlreadyDecided)

			account := f.account(t, user)
			assert.Equal(t, tc.wantAvailable, account.AvailableTickets)
			assert.Equal(t, 1, account.UsedTickets)

			stored, err := f.store.Get(ctx, res.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, stored.Status)
		})
	}
}

func TestConcurrentDecisionsApplyOnce(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 2)

	res, err := f.svc.Create(ctx, user, f.event, at(2025, time.June, 10))
	require.NoError(t, err)

	results := make([]error, 6)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			_, results[i] = f.svc.Decide(ctx, res.ID, f.organizer, models.DecisionRefuse)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrAlreadyDecided)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, f.account(t, user).AvailableTickets)
}

func TestDecideByOtherAdminIsNotOrganizer(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 1)
	stranger := f.newUser(t, models.RoleAdmin, 0)

	res, err := f.svc.Create(ctx, user, f.event, at(2025, time.June, 10))
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, res.ID, stranger, models.DecisionRefuse)
	assert.ErrorIs(t, err, apperrors.ErrNotOrganizer)
	assert.Equal(t, 0, f.account(t, user).AvailableTickets)
}

func TestDecideMissingReservation(t *testing.T) {
	f := newFixture(t, ReservationOptions{})

	_, err := f.svc.Decide(context.Background(), 404, f.organizer, models.DecisionAccept)
	assert.ErrorIs(t, err, apperrors.ErrReservationNotFound)
}

func TestRefuseThenReserveAgainScenario(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 3)

	r1, err := f.svc.Create(ctx, user, f.event, time.Date(2025, 6, 10, 19, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, r1.Status)
	assert.Equal(t, 2, f.account(t, user).AvailableTickets)

	refused, err := f.svc.Decide(ctx, r1.ID, f.organizer, models.DecisionRefuse)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRefused, refused.Status)
	assert.Equal(t, 3, f.account(t, user).AvailableTickets)

	_, err = f.svc.Create(ctx, user, f.event, time.Date(2025, 6, 15, 19, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	account := f.account(t, user)
	assert.Equal(t, 2, account.AvailableTickets)
	assert.Equal(t, 2, account.UsedTickets)

	assert.Equal(t, []string{
		models.EventReservationCreated,
		models.EventReservationRefused,
		models.EventReservationCreated,
	}, f.publisher.subjects)
}

func TestCancelAcceptedIsIllegalState(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 3)

	res, err := f.svc.Create(ctx, user, f.event, at(2025, time.June, 10))
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, res.ID, f.organizer, models.DecisionAccept)
	require.NoError(t, err)
	before := f.account(t, user)

	err = f.svc.Cancel(ctx, res.ID, user)
	assert.ErrorIs(t, err, apperrors.ErrIllegalState)
	assert.Equal(t, before, f.account(t, user))

	_, err = f.store.Get(ctx, res.ID)
	assert.NoError(t, err)
}

func TestCancelPendingReturnsTicket(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 3)

	res, err := f.svc.Create(ctx, user, f.event, at(2025, time.June, 10))
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, res.ID, user))

	account := f.account(t, user)
	assert.Equal(t, 3, account.AvailableTickets)
	assert.Equal(t, 1, account.UsedTickets)

	_, err = f.store.Get(ctx, res.ID)
	assert.ErrorIs(t, err, apperrors.ErrReservationNotFound)

	_, err = f.svc.Create(ctx, user, f.event, at(2025, time.June, 20))
	assert.NoError(t, err)
}

func TestCancelByAnotherUserIsNotOwner(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	ctx := context.Background()
	owner := f.newUser(t, models.RoleUser, 1)
	other := f.newUser(t, models.RoleUser, 1)

	res, err := f.svc.Create(ctx, owner, f.event, at(2025, time.June, 10))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Cancel(ctx, res.ID, other), apperrors.ErrNotOwner)
	assert.Equal(t, 0, f.account(t, owner).AvailableTickets)
	assert.Equal(t, 1, f.account(t, other).AvailableTickets)
}

func TestCancelMissingReservation(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	user := f.newUser(t, models.RoleUser, 1)

	assert.ErrorIs(t, f.svc.Cancel(context.Background(), 77, user), apperrors.ErrReservationNotFound)
}

// failingInsert breaks the second half of the create unit.
type failingInsert struct {
	*memory.Store
}

func (failingInsert) Insert(context.Context, *models.Reservation) (int64, error) {
	return 0, apperrors.Storage("insert reservation", errors.New("connection reset"))
}

func TestInsertFailureRestoresDebit(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	m := metrics.New()
	svc := NewReservationService(store, failingInsert{store}, store.Events(), store, nil, ReservationOptions{Metrics: m})

	user := &models.User{Email: "u@example.com", Role: models.RoleUser, AvailableTickets: 2, IsActive: true}
	require.NoError(t, store.Create(ctx, user))
	event := &models.Event{OrganizerID: 99, Title: "Gala", ScheduleStart: at(2025, time.June, 1), ScheduleEnd: at(2025, time.June, 30)}
	require.NoError(t, store.Events().Create(ctx, event))

	_, err := svc.Create(ctx, user.UserID, event.ID, at(2025, time.June, 1))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStorageFailure, apperrors.KindOf(err))
	assert.Equal(t, "internal error", apperrors.ReasonOf(err))

	account, err := store.Account(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, account.AvailableTickets)
	assert.Equal(t, 0, account.UsedTickets)
}

// failingUpdateStatus breaks the status write that follows a refund.
type failingUpdateStatus struct {
	*memory.Store
}

func (failingUpdateStatus) UpdateStatus(context.Context, int64, models.ReservationStatus, time.Time) error {
	return apperrors.Storage("update reservation status", errors.New("connection reset"))
}

// failingDelete breaks the delete that follows a cancellation refund.
type failingDelete struct {
	*memory.Store
}

func (failingDelete) Delete(context.Context, int64) error {
	return apperrors.Storage("delete reservation", errors.New("connection reset"))
}

// pendingReservation creates a reservation through a working service so the
// broken store under test only sees the second operation.
func pendingReservation(t *testing.T, store *memory.Store) (userID, organizerID int64, res *models.Reservation) {
	t.Helper()
	ctx := context.Background()

	organizer := &models.User{Email: "org-rollback@example.com", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, store.Create(ctx, organizer))
	user := &models.User{Email: "user-rollback@example.com", Role: models.RoleUser, AvailableTickets: 2, IsActive: true}
	require.NoError(t, store.Create(ctx, user))
	event := &models.Event{OrganizerID: organizer.UserID, Title: "Gala", ScheduleStart: at(2025, time.June, 1), ScheduleEnd: at(2025, time.June, 30)}
	require.NoError(t, store.Events().Create(ctx, event))

	working := NewReservationService(store, store, store.Events(), store, nil, ReservationOptions{})
	res, err := working.Create(ctx, user.UserID, event.ID, at(2025, time.June, 10))
	require.NoError(t, err)
	return user.UserID, organizer.UserID, res
}

func TestRefuseUpdateFailureRestoresCredit(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	userID, organizerID, res := pendingReservation(t, store)
	publisher := &recordingPublisher{}
	svc := NewReservationService(store, failingUpdateStatus{store}, store.Events(), store, publisher, ReservationOptions{})

	_, err := svc.Decide(ctx, res.ID, organizerID, models.DecisionRefuse)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStorageFailure, apperrors.KindOf(err))

	account, err := store.Account(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, account.AvailableTickets)
	assert.Equal(t, 1, account.UsedTickets)

	stored, err := store.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Nil(t, stored.DecidedAt)
	assert.Empty(t, publisher.subjects)
}

func TestCancelDeleteFailureRestoresCredit(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	userID, _, res := pendingReservation(t, store)
	publisher := &recordingPublisher{}
	svc := NewReservationService(store, failingDelete{store}, store.Events(), store, publisher, ReservationOptions{})

	err := svc.Cancel(ctx, res.ID, userID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStorageFailure, apperrors.KindOf(err))

	account, err := store.Account(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, account.AvailableTickets)
	assert.Equal(t, 1, account.UsedTickets)

	stored, err := store.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Empty(t, publisher.subjects)
}

// guardedUpdateStatus rejects status writes with a state error that is not a
// lost transition race.
type guardedUpdateStatus struct {
	*memory.Store
}

func (guardedUpdateStatus) UpdateStatus(context.Context, int64, models.ReservationStatus, time.Time) error {
	return apperrors.New(apperrors.KindIllegalState, "reservation can only move to accepted or refused")
}

func TestDecideKeepsIllegalStateFromStore(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	userID, organizerID, res := pendingReservation(t, store)
	svc := NewReservationService(store, guardedUpdateStatus{store}, store.Events(), store, nil, ReservationOptions{})

	_, err := svc.Decide(ctx, res.ID, organizerID, models.DecisionAccept)
	assert.Equal(t, apperrors.KindIllegalState, apperrors.KindOf(err))
	assert.NotErrorIs(t, err, apperrors.ErrAlreadyDecided)

	account, err := store.Account(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, account.AvailableTickets)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	f.publisher.err = errors.New("nats down")
	user := f.newUser(t, models.RoleUser, 1)

	_, err := f.svc.Create(context.Background(), user, f.event, at(2025, time.June, 10))
	assert.NoError(t, err)
	assert.Equal(t, 0, f.account(t, user).AvailableTickets)
}

func TestListByUserFiltersMonthAndSorts(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 5)

	for _, month := range []time.Month{time.September, time.March, time.June} {
		_, err := f.svc.Create(ctx, user, f.event, at(2025, month, 10))
		require.NoError(t, err)
	}

	all, err := f.svc.ListByUser(ctx, user, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2025-03", all[0].ScheduleMonth)
	assert.Equal(t, "2025-09", all[2].ScheduleMonth)

	june := models.YearMonth{Year: 2025, Month: time.June}
	only, err := f.svc.ListByUser(ctx, user, &june)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "2025-06", only[0].ScheduleMonth)
}

func TestListByEventRequiresOrganizer(t *testing.T) {
	f := newFixture(t, ReservationOptions{})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 1)

	_, err := f.svc.Create(ctx, user, f.event, at(2025, time.June, 10))
	require.NoError(t, err)

	list, err := f.svc.ListByEvent(ctx, f.event, f.organizer)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.ListByEvent(ctx, f.event, user)
	assert.ErrorIs(t, err, apperrors.ErrNotOrganizer)
}

type mapSummaryCache struct {
	mu          sync.Mutex
	entries     map[int64]models.ProgressSummary
	invalidated []int64
}

func (c *mapSummaryCache) GetSummary(_ context.Context, organizerID int64) (models.ProgressSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[organizerID]
	return s, ok
}

func (c *mapSummaryCache) SetSummary(_ context.Context, summary models.ProgressSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[summary.OrganizerID] = summary
}

func (c *mapSummaryCache) InvalidateSummary(_ context.Context, organizerID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, organizerID)
	c.invalidated = append(c.invalidated, organizerID)
}

func TestSummaryIsCachedUntilNextChange(t *testing.T) {
	cache := &mapSummaryCache{entries: map[int64]models.ProgressSummary{}}
	f := newFixture(t, ReservationOptions{Summaries: cache})
	ctx := context.Background()
	user := f.newUser(t, models.RoleUser, 3)

	r1, err := f.svc.Create(ctx, user, f.event, at(2025, time.June, 10))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, user, f.event, at(2025, time.July, 10))
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, r1.ID, f.organizer, models.DecisionAccept)
	require.NoError(t, err)

	summary, err := f.svc.Summary(ctx, f.organizer)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressSummary{OrganizerID: f.organizer, Events: 1, Pending: 1, Accepted: 1}, summary)

	_, cached := cache.GetSummary(ctx, f.organizer)
	assert.True(t, cached)

	require.NoError(t, f.svc.Cancel(ctx, r1.ID+1, user))
	_, cached = cache.GetSummary(ctx, f.organizer)
	assert.False(t, cached)
	assert.Contains(t, cache.invalidated, f.organizer)
}
