package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("create: %w", ErrInsufficientTickets)

	assert.True(t, errors.Is(err, ErrInsufficientTickets))
	assert.False(t, errors.Is(err, ErrDuplicateMonthly))
	assert.True(t, errors.Is(New(KindInsufficientTickets, "other wording"), ErrInsufficientTickets))
}

func TestIllegalTransitionIsDistinctFromIllegalState(t *testing.T) {
	assert.False(t, errors.Is(ErrIllegalState, ErrIllegalTransition))
	assert.False(t, errors.Is(ErrIllegalTransition, ErrIllegalState))
	assert.False(t, errors.Is(New(KindIllegalState, "reservation is no longer pending"), ErrIllegalTransition))
	assert.True(t, errors.Is(fmt.Errorf("update status: %w", ErrIllegalTransition), ErrIllegalTransition))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAlreadyDecided, KindOf(ErrAlreadyDecided))
	assert.Equal(t, KindStorageFailure, KindOf(errors.New("connection reset")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestReasonOfHidesStorageCauses(t *testing.T) {
	cause := errors.New("pq: password authentication failed")

	assert.Equal(t, "internal error", ReasonOf(Storage("debit ticket", cause)))
	assert.Equal(t, "internal error", ReasonOf(cause))
	assert.Equal(t, "no tickets left", ReasonOf(fmt.Errorf("wrapped: %w", ErrInsufficientTickets)))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindStorageFailure, "insert reservation", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert reservation: boom", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		nil:                     http.StatusOK,
		ErrEventNotFound:        http.StatusNotFound,
		ErrUnauthorized:         http.StatusUnauthorized,
		ErrNotOwner:             http.StatusForbidden,
		ErrNotOrganizer:         http.StatusForbidden,
		ErrForbidden:            http.StatusForbidden,
		ErrInsufficientTickets:  http.StatusConflict,
		ErrDuplicateMonthly:     http.StatusConflict,
		ErrEmailTaken:           http.StatusConflict,
		ErrEventHasReservations: http.StatusConflict,
		ErrNotAuthor:            http.StatusForbidden,
		ErrAlreadyDecided:       http.StatusPreconditionFailed,
		ErrIllegalState:         http.StatusPreconditionFailed,
		ErrIllegalTransition:    http.StatusPreconditionFailed,
		Malformed("bad"):        http.StatusBadRequest,
		errors.New("boom"):      http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), "%v", err)
	}
}
