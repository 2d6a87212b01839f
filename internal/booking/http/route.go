package http

import (
	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/library-booking-backend/internal/auth"
)

// RegisterRoutes mounts the booking endpoints. createLimit guards POST /bookings.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, createLimit gin.HandlerFunc) {
	group := g.Group("/bookings", authMiddleware)

	group.POST("", createLimit, h.Create)
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.DELETE("/:id", h.Cancel)

	// === Librarian Routes ===
	group.POST("/:id/check-in", auth.RequireRole(auth.RoleLibrarian, auth.RoleAdmin), h.CheckIn)
	group.PATCH("/:id/status", auth.RequireRole(auth.RoleLibrarian, auth.RoleAdmin), h.UpdateStatus)
}
