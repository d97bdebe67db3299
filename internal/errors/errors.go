package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so transports can map it to a status code
// without inspecting reason strings.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindNotOwner            Kind = "not_owner"
	KindNotOrganizer        Kind = "not_organizer"
	KindInsufficientTickets Kind = "insufficient_tickets"
	KindDuplicateMonthly    Kind = "duplicate_monthly_reservation"
	KindAlreadyDecided      Kind = "already_decided"
	KindIllegalState        Kind = "illegal_state"
	KindIllegalTransition   Kind = "illegal_transition"
	KindMalformed           Kind = "malformed_request"
	KindConflict            Kind = "conflict"
	KindStorageFailure      Kind = "storage_failure"
)

// Error is a typed domain failure with a human-readable reason.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap attaches a cause to a typed failure.
func Wrap(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels compare by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthorized = New(KindUnauthorized, "user is not authorized")
	ErrForbidden    = New(KindForbidden, "operation is forbidden for user")

	ErrUserNotFound        = New(KindNotFound, "user not found")
	ErrEventNotFound       = New(KindNotFound, "event not found")
	ErrReservationNotFound = New(KindNotFound, "reservation not found")

	ErrNotOwner     = New(KindNotOwner, "only the owner may cancel this reservation")
	ErrNotOrganizer = New(KindNotOrganizer, "only the event organizer may decide on this reservation")
	ErrNotAuthor    = New(KindNotOrganizer, "only the event organizer may change this event")

	ErrInsufficientTickets = New(KindInsufficientTickets, "no tickets left")
	ErrDuplicateMonthly    = New(KindDuplicateMonthly, "a reservation already exists for this month")

	ErrAlreadyDecided = New(KindAlreadyDecided, "reservation has already been decided")
	ErrIllegalState   = New(KindIllegalState, "reservation can only be cancelled while pending")

	// ErrIllegalTransition is reported by stores when a status update finds
	// the reservation already out of Pending.
	ErrIllegalTransition = New(KindIllegalTransition, "reservation is no longer pending")

	ErrEmailTaken           = New(KindConflict, "email is already registered")
	ErrEventHasReservations = New(KindConflict, "event still has pending or accepted reservations")
)

// KindOf reports the kind of err. Untyped errors are storage failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageFailure
}

// ReasonOf returns the reason of a typed error, or a generic message.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindStorageFailure {
		return e.Reason
	}
	return "internal error"
}

// Malformed builds a request-validation failure.
func Malformed(reason string) *Error {
	return New(KindMalformed, reason)
}

// Storage wraps a persistence error so it is never mistaken for a business rejection.
func Storage(op string, err error) *Error {
	return Wrap(KindStorageFailure, op, err)
}
