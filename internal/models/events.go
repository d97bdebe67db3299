package models

import "time"

// NATS subjects for reservation lifecycle events
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationAccepted  = "reservation.accepted"
	EventReservationRefused   = "reservation.refused"
)

// ReservationSubjects lists every subject consumers subscribe to.
var ReservationSubjects = []string{
	EventReservationCreated,
	EventReservationCancelled,
	EventReservationAccepted,
	EventReservationRefused,
}

// ReservationEvent is published after a workflow transaction commits
type ReservationEvent struct {
	ReservationID    int64             `json:"reservation_id"`
	UserID           int64             `json:"user_id"`
	EventID          int64             `json:"event_id"`
	OrganizerID      int64             `json:"organizer_id"`
	Status           ReservationStatus `json:"status"`
	ScheduleStart    time.Time         `json:"schedule_start"`
	AvailableTickets int               `json:"available_tickets"`
	Timestamp        time.Time         `json:"timestamp"`
}
