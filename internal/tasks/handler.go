package tasks

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hoangnv-dev/taskhub/internal/apperror"
	"github.com/hoangnv-dev/taskhub/internal/auth"
)

// Handler handles HTTP requests for tasks. Handlers are thin: bind, call
// the service, render. Errors bubble up to the central error handler.
type Handler struct {
	service TaskService
}

// NewHandler creates a new task handler with the given service.
func NewHandler(service TaskService) *Handler {
	return &Handler{service: service}
}

// Create adds a new task (POST /api/tasks).
func (h *Handler) Create(c echo.Context) error {
	var input CreateInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	task, err := h.service.Create(c.Request().Context(), auth.GetUserID(c), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, task)
}

// Get returns a single task (GET /api/tasks/:id).
func (h *Handler) Get(c echo.Context) error {
	task, err := h.service.Get(c.Request().Context(), auth.GetUserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// List returns a filtered, paginated page of the user's tasks
// (GET /api/tasks). Filters come from query parameters; absent parameters
// mean "no filter".
func (h *Handler) List(c echo.Context) error {
	filter := ListFilter{
		Status:   c.QueryParam("status"),
		Priority: c.QueryParam("priority"),
		Deadline: c.QueryParam("deadline"),
		Search:   c.QueryParam("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", DefaultPageSize),
	}

	page, err := h.service.List(c.Request().Context(), auth.GetUserID(c), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Update replaces a task's mutable fields (PUT /api/tasks/:id).
func (h *Handler) Update(c echo.Context) error {
	var input UpdateInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	task, err := h.service.Update(c.Request().Context(), auth.GetUserID(c), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// Delete removes a task (DELETE /api/tasks/:id).
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), auth.GetUserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats returns per-status task counts (GET /api/tasks/stats).
func (h *Handler) Stats(c echo.Context) error {
	counts, err := h.service.CountByStatus(c.Request().Context(), auth.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"counts": counts})
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
