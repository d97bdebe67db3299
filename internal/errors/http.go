package errors

import "net/http"

// HTTPStatus maps err to the status a handler responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case "":
		return http.StatusOK
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden, KindNotOwner, KindNotOrganizer:
		return http.StatusForbidden
	case KindInsufficientTickets, KindDuplicateMonthly, KindConflict:
		return http.StatusConflict
	case KindAlreadyDecided, KindIllegalState, KindIllegalTransition:
		return http.StatusPreconditionFailed
	case KindMalformed:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
