package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hoangnv-dev/taskhub/internal/middleware"
)

// RegisterRoutes sets up all auth-related routes on the given Echo instance.
// Credential routes are public; the rest require a valid access token. The
// RequireAuth middleware is exported separately for other features to use on
// their route groups.
//
// Credential endpoints are rate-limited to slow down brute-force and
// credential stuffing: 10 attempts per IP per minute for login, 5 for
// register, password change, and the reset pair.
func RegisterRoutes(e *echo.Echo, h *Handler, service AuthService) {
	g := e.Group("/api/auth")

	// Public routes -- no token required.
	g.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))
	g.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	g.POST("/refresh", h.Refresh, middleware.RateLimit(30, time.Minute))
	g.POST("/forgot-password", h.ForgotPassword, middleware.RateLimit(5, time.Minute))
	g.POST("/reset-password", h.ResetPassword, middleware.RateLimit(5, time.Minute))

	// Authenticated routes.
	authed := g.Group("", RequireAuth(service))
	authed.POST("/logout", h.Logout)
	authed.GET("/me", h.Me)
	authed.PATCH("/profile", h.UpdateProfile)
	authed.POST("/change-password", h.ChangePassword, middleware.RateLimit(5, time.Minute))
}
