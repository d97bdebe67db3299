package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"minischeduler/internal/models"
)

// CreateReservation - POST /api/reservations
func (h *Handlers) CreateReservation(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var req models.CreateReservationRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.services.Reservations.Create(c.Request.Context(), who.UserID, req.EventID, req.ScheduleStart)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// ListReservations - GET /api/reservations?year=&month=
func (h *Handlers) ListReservations(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	month, ok := yearMonth(c)
	if !ok {
		return
	}

	reservations, err := h.services.Reservations.ListByUser(c.Request.Context(), who.UserID, month)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(reservations))
}

// CancelReservation - DELETE /api/reservations/:id
func (h *Handlers) CancelReservation(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Reservations.Cancel(c.Request.Context(), id, who.UserID); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DecideReservation - POST /api/reservations/:id/decision
func (h *Handlers) DecideReservation(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.DecisionRequest
	if !bindJSON(c, &req) {
		return
	}
	decision, err := models.ParseDecision(req.Decision)
	if err != nil {
		fail(c, err)
		return
	}

	res, err := h.services.Reservations.Decide(c.Request.Context(), id, who.UserID, decision)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Summary - GET /api/admin/summary
func (h *Handlers) Summary(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	summary, err := h.services.Reservations.Summary(c.Request.Context(), who.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
