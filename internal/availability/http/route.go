package http

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the read-only availability endpoints. They need no authentication.
func RegisterRoutes(g *gin.RouterGroup, h *Handler) {
	g.GET("/timeslots/available", h.ListTimeSlots)
	g.GET("/bookings/available", h.ListSeats)
}
