package http

import (
	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/library-booking-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/timeslots")

	// === Public Routes ===
	group.GET("", h.List)
	group.GET("/:id", h.Get)

	// === Librarian Routes ===
	group.POST("", authMiddleware, auth.RequireRole(auth.RoleLibrarian, auth.RoleAdmin), h.Create)
}
