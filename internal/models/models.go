package models

import (
	"time"

	apperrors "minischeduler/internal/errors"
)

// RegisterUserRequest - sign-up payload
type RegisterUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// UpdateUserRequest - profile edit payload; both fields are replaced
type UpdateUserRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// UserResponse - account view returned to its owner
type UserResponse struct {
	UserID           int64     `json:"user_id"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	Role             Role      `json:"role"`
	AvailableTickets int       `json:"available_tickets"`
	UsedTickets      int       `json:"used_tickets"`
	RegisteredAt     time.Time `json:"registered_at"`
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		UserID:           u.UserID,
		Email:            u.Email,
		FullName:         u.FullName,
		Role:             u.Role,
		AvailableTickets: u.AvailableTickets,
		UsedTickets:      u.UsedTickets,
		RegisteredAt:     u.RegisteredAt,
	}
}

// CreateEventRequest - event publication payload, also used to edit an event
type CreateEventRequest struct {
	Title         string    `json:"title" binding:"required"`
	Description   *string   `json:"description,omitempty"`
	ScheduleStart time.Time `json:"schedule_start" binding:"required"`
	ScheduleEnd   time.Time `json:"schedule_end" binding:"required"`
	Capacity      int       `json:"capacity" binding:"gte=0"`
}

// CreateEventResponse - id of the created event
type CreateEventResponse struct {
	ID int64 `json:"id"`
}

// CreateReservationRequest - reservation payload
type CreateReservationRequest struct {
	EventID       int64     `json:"event_id" binding:"required"`
	ScheduleStart time.Time `json:"schedule_start" binding:"required"`
}

// DecisionRequest - organizer verdict payload
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// BalanceResponse - ticket balance of the caller
type BalanceResponse struct {
	AvailableTickets int `json:"available_tickets"`
	UsedTickets      int `json:"used_tickets"`
}

// ErrorResponse - every failed request carries a reason and a machine-readable code
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: apperrors.ReasonOf(err), Code: string(apperrors.KindOf(err))}
}
