package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"minischeduler/internal/models"
)

// SignUp - POST /api/users
func (h *Handlers) SignUp(c *gin.Context) {
	var req models.RegisterUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.services.Accounts.Register(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewUserResponse(user))
}

// Me - GET /api/users/me
func (h *Handlers) Me(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	user, err := h.services.Accounts.Profile(c.Request.Context(), who.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewUserResponse(user))
}

// UpdateMe - PUT /api/users/me
func (h *Handlers) UpdateMe(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.services.Accounts.UpdateProfile(c.Request.Context(), who.UserID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewUserResponse(user))
}

// Tickets - GET /api/tickets
func (h *Handlers) Tickets(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	account, err := h.services.Reservations.Account(c.Request.Context(), who.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BalanceResponse{
		AvailableTickets: account.AvailableTickets,
		UsedTickets:      account.UsedTickets,
	})
}
