package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hoangnv-dev/taskhub/internal/auth"
	"github.com/hoangnv-dev/taskhub/internal/tasks"
)

// RegisterRoutes sets up all application routes. It constructs each
// feature's repository/service/handler stack and delegates to the feature's
// route registration function.
//
// This is the single place where all routes are aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for container health monitoring.
	e.GET("/healthz", func(c echo.Context) error {
		if err := a.DB.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Feature Routes ---

	// Auth: registration, login, token refresh, password reset, profile.
	authRepo := auth.NewUserRepository(a.DB)
	authService := auth.NewAuthService(authRepo, a.Redis, a.Config.BaseURL,
		a.Config.Auth.SessionTTL, a.Config.Auth.RefreshTTL)
	auth.RegisterRoutes(e, auth.NewHandler(authService), authService)

	// Tasks: CRUD, filtered list, per-status counts.
	taskRepo := tasks.NewTaskRepository(a.DB)
	taskService := tasks.NewTaskService(taskRepo)
	tasks.RegisterRoutes(e, tasks.NewHandler(taskService), authService)
}
