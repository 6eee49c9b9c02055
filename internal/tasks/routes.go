package tasks

import (
	"github.com/labstack/echo/v4"

	"github.com/hoangnv-dev/taskhub/internal/auth"
)

// RegisterRoutes sets up all task routes. Every task route requires a valid
// access token; ownership scoping happens in the service.
func RegisterRoutes(e *echo.Echo, h *Handler, authService auth.AuthService) {
	g := e.Group("/api/tasks", auth.RequireAuth(authService))

	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
