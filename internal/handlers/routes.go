package handlers

import (
	"github.com/gin-gonic/gin"

	"minischeduler/internal/middleware"
	"minischeduler/internal/models"
)

// Routes mounts the API under /api. Everything except sign-up requires
// Basic auth.
func (h *Handlers) Routes(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/users", h.SignUp)

	authed := api.Group("", middleware.BasicAuth(h.services.Accounts))
	admin := middleware.RequireRole(models.RoleAdmin)
	{
		authed.GET("/users/me", h.Me)
		authed.PUT("/users/me", h.UpdateMe)
		authed.GET("/tickets", h.Tickets)

		events := authed.Group("/events")
		{
			events.GET("", h.ListEvents)
			events.POST("", admin, h.CreateEvent)
			events.GET("/mine", admin, h.ListMyEvents)
			events.GET("/:id", h.GetEvent)
			events.PUT("/:id", admin, h.UpdateEvent)
			events.DELETE("/:id", admin, h.DeleteEvent)
			events.GET("/:id/reservations", admin, h.ListEventReservations)
		}

		reservations := authed.Group("/reservations")
		{
			reservations.POST("", h.CreateReservation)
			reservations.GET("", h.ListReservations)
			reservations.DELETE("/:id", h.CancelReservation)
			reservations.POST("/:id/decision", admin, h.DecideReservation)
		}

		authed.GET("/admin/summary", admin, h.Summary)
	}
}
