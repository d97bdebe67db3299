package models

import (
	"fmt"
	"strings"
	"time"

	apperrors "minischeduler/internal/errors"
)

// Role of an account. Admins organize events, users reserve them.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", apperrors.Malformed(fmt.Sprintf("unknown role %q", s))
}

// User represents an account in the system
type User struct {
	UserID           int64     `json:"user_id" db:"user_id"`
	Email            string    `json:"email" db:"email"`
	PasswordHash     string    `json:"-" db:"password_hash"`
	FullName         string    `json:"full_name" db:"full_name"`
	Role             Role      `json:"role" db:"role"`
	AvailableTickets int       `json:"available_tickets" db:"available_tickets"`
	UsedTickets      int       `json:"used_tickets" db:"used_tickets"`
	RegisteredAt     time.Time `json:"registered_at" db:"registered_at"`
	IsActive         bool      `json:"is_active" db:"is_active"`
}

// TicketAccount is the ledger view of a user.
type TicketAccount struct {
	UserID           int64 `json:"user_id"`
	AvailableTickets int   `json:"available_tickets"`
	UsedTickets      int   `json:"used_tickets"`
}

func (u *User) Account() TicketAccount {
	return TicketAccount{
		UserID:           u.UserID,
		AvailableTickets: u.AvailableTickets,
		UsedTickets:      u.UsedTickets,
	}
}

// Event represents a schedulable event published by an organizer
type Event struct {
	ID            int64     `json:"id" db:"id"`
	OrganizerID   int64     `json:"organizer_id" db:"organizer_id"`
	Title         string    `json:"title" db:"title"`
	Description   *string   `json:"description" db:"description"`
	ScheduleStart time.Time `json:"schedule_start" db:"schedule_start"`
	ScheduleEnd   time.Time `json:"schedule_end" db:"schedule_end"`
	Capacity      int       `json:"capacity" db:"capacity"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ReservationStatus is the approval state of a reservation.
type ReservationStatus string

const (
	StatusPending  ReservationStatus = "PENDING"
	StatusAccepted ReservationStatus = "ACCEPTED"
	StatusRefused  ReservationStatus = "REFUSED"
)

// Terminal reports whether no transition may leave s.
func (s ReservationStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRefused
}

// Active reservations occupy their calendar month.
func (s ReservationStatus) Active() bool {
	return s == StatusPending || s == StatusAccepted
}

// Reservation is a user's claim on one event occurrence
type Reservation struct {
	ID            int64             `json:"id" db:"id"`
	UserID        int64             `json:"user_id" db:"user_id"`
	EventID       int64             `json:"event_id" db:"event_id"`
	ScheduleStart time.Time         `json:"schedule_start" db:"schedule_start"`
	ScheduleMonth string            `json:"schedule_month" db:"schedule_month"`
	Status        ReservationStatus `json:"status" db:"status"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	DecidedAt     *time.Time        `json:"decided_at,omitempty" db:"decided_at"`
}

// Decision is an organizer's verdict on a pending reservation.
type Decision int

const (
	DecisionAccept Decision = iota + 1
	DecisionRefuse
)

func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept":
		return DecisionAccept, nil
	case "refuse":
		return DecisionRefuse, nil
	}
	return 0, apperrors.Malformed(fmt.Sprintf("decision must be \"accept\" or \"refuse\", got %q", s))
}

func (d Decision) String() string {
	switch d {
	case DecisionAccept:
		return "accept"
	case DecisionRefuse:
		return "refuse"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// Status is the reservation state a decision leads to.
func (d Decision) Status() ReservationStatus {
	if d == DecisionAccept {
		return StatusAccepted
	}
	return StatusRefused
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// YearMonthOf returns the calendar month of t as observed in loc.
func YearMonthOf(t time.Time, loc *time.Location) YearMonth {
	if loc != nil {
		t = t.In(loc)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func NewYearMonth(year, month int) (YearMonth, error) {
	if month < 1 || month > 12 {
		return YearMonth{}, apperrors.Malformed("month must be between 1 and 12")
	}
	if year < 1 {
		return YearMonth{}, apperrors.Malformed("year must be positive")
	}
	return YearMonth{Year: year, Month: time.Month(month)}, nil
}

// String formats as YYYY-MM, the stored schedule_month.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// ProgressSummary counts reservations across an organizer's events.
type ProgressSummary struct {
	OrganizerID int64 `json:"organizer_id"`
	Events      int   `json:"registered_events"`
	Pending     int   `json:"pending"`
	Accepted    int   `json:"accepted"`
	Refused     int   `json:"refused"`
}

// Caller is the identity resolved for an inbound request.
type Caller struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// AuthEntry is the cached credential record for an email.
type AuthEntry struct {
	UserID       int64  `json:"user_id"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"password_hash"`
}
