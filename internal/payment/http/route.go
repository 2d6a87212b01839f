package http

import (
	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/library-booking-backend/internal/auth"
)

// RegisterRoutes mounts the payment endpoints. createLimit guards order creation.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, createLimit gin.HandlerFunc) {
	group := g.Group("/payments")

	// === Gateway Callback ===
	group.POST("/webhook", h.Webhook)

	// === Authenticated Routes ===
	group.POST("/create-order", authMiddleware, createLimit, h.CreateOrder)
	group.GET("/:orderId", authMiddleware, h.Get)

	// === Librarian Routes ===
	group.POST("/:orderId/payout/retry", authMiddleware, auth.RequireRole(auth.RoleLibrarian, auth.RoleAdmin), h.RetryPayout)

	// === Admin Routes ===
	group.POST("/:orderId/payout/confirm", authMiddleware, auth.RequireRole(auth.RoleAdmin), h.ConfirmPayout)
}
