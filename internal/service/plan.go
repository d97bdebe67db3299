package service

import (
	"time"

	apperrors "minischeduler/internal/errors"
	"minischeduler/internal/models"
)

type effectKind int

const (
	effectDebit effectKind = iota + 1
	effectCredit
	effectInsert
	effectUpdateStatus
	effectDelete
)

func (k effectKind) String() string {
	switch k {
	case effectDebit:
		return "debit"
	case effectCredit:
		return "credit"
	case effectInsert:
		return "insert"
	case effectUpdateStatus:
		return "update_status"
	case effectDelete:
		return "delete"
	}
	return "unknown"
}

// effect is one store operation. Effects of a plan are applied in order
// inside a single user-locked unit.
type effect struct {
	kind        effectKind
	userID      int64
	reservation models.Reservation
}

// plan is the outcome of a workflow decision: the reservation as it will
// look once the effects are applied.
type plan struct {
	reservation models.Reservation
	effects     []effect
	subject     string
}

type createInput struct {
	userID        int64
	eventID       int64
	scheduleStart time.Time
	month         models.YearMonth
	account       models.TicketAccount
	existing      []models.Reservation
	countRefused  bool
	now           time.Time
}

// planCreate checks the monthly rule and the balance against a snapshot
// taken under the user's lock.
func planCreate(in createInput) (plan, error) {
	month := in.month.String()
	for _, r := range in.existing {
		if r.ScheduleMonth != month {
			continue
		}
		if r.Status.Active() || in.countRefused {
			return plan{}, apperrors.ErrDuplicateMonthly
		}
	}
	if in.account.AvailableTickets <= 0 {
		return plan{}, apperrors.ErrInsufficientTickets
	}

	res := models.Reservation{
		UserID:        in.userID,
		EventID:       in.eventID,
		ScheduleStart: in.scheduleStart,
		ScheduleMonth: month,
		Status:        models.StatusPending,
		CreatedAt:     in.now,
	}
	return plan{
		reservation: res,
		effects: []effect{
			{kind: effectDebit, userID: in.userID},
			{kind: effectInsert, userID: in.userID, reservation: res},
		},
		subject: models.EventReservationCreated,
	}, nil
}

func planCancel(current models.Reservation, requesterID int64) (plan, error) {
	if current.UserID != requesterID {
		return plan{}, apperrors.ErrNotOwner
	}
	if current.Status != models.StatusPending {
		return plan{}, apperrors.ErrIllegalState
	}
	return plan{
		reservation: current,
		effects: []effect{
			{kind: effectCredit, userID: current.UserID},
			{kind: effectDelete, userID: current.UserID, reservation: current},
		},
		subject: models.EventReservationCancelled,
	}, nil
}

func planDecide(current models.Reservation, organizerID, deciderID int64, decision models.Decision, now time.Time) (plan, error) {
	if decision != models.DecisionAccept && decision != models.DecisionRefuse {
		return plan{}, apperrors.Malformed("decision must be accept or refuse")
	}
	if organizerID != deciderID {
		return plan{}, apperrors.ErrNotOrganizer
	}
	if current.Status != models.StatusPending {
		return plan{}, apperrors.ErrAlreadyDecided
	}

	next := current
	decidedAt := now
	next.Status = decision.Status()
	next.DecidedAt = &decidedAt

	p := plan{reservation: next}
	if decision == models.DecisionRefuse {
		p.effects = append(p.effects, effect{kind: effectCredit, userID: current.UserID})
		p.subject = models.EventReservationRefused
	} else {
		p.subject = models.EventReservationAccepted
	}
	p.effects = append(p.effects, effect{kind: effectUpdateStatus, userID: current.UserID, reservation: next})
	return p, nil
}
