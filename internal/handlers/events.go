package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"minischeduler/internal/models"
)

// CreateEvent - POST /api/events
func (h *Handlers) CreateEvent(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var req models.CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.services.Events.Create(c.Request.Context(), who, &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateEventResponse{ID: event.ID})
}

// UpdateEvent - PUT /api/events/:id
func (h *Handlers) UpdateEvent(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.services.Events.Update(c.Request.Context(), who, id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// DeleteEvent - DELETE /api/events/:id
func (h *Handlers) DeleteEvent(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Events.Delete(c.Request.Context(), who, id); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListEvents - GET /api/events?year=&month=&keyword=
func (h *Handlers) ListEvents(c *gin.Context) {
	month, ok := yearMonth(c)
	if !ok {
		return
	}

	events, err := h.services.Events.List(c.Request.Context(), month, c.Query("keyword"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(events))
}

// GetEvent - GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	event, err := h.services.Events.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// ListMyEvents - GET /api/events/mine
func (h *Handlers) ListMyEvents(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	events, err := h.services.Events.ListMine(c.Request.Context(), who.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(events))
}

// ListEventReservations - GET /api/events/:id/reservations
func (h *Handlers) ListEventReservations(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	reservations, err := h.services.Reservations.ListByEvent(c.Request.Context(), id, who.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(reservations))
}

// nonNil renders empty results as [] instead of null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
