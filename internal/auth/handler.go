package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hoangnv-dev/taskhub/internal/apperror"
)

// Handler handles HTTP requests for authentication. Handlers are thin: they
// bind the request, call the service, and render the response. No business
// logic lives here. Errors bubble up to the central error handler.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// Register creates a new account (POST /api/auth/register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	user, err := h.service.Register(c.Request().Context(), RegisterInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	identity := user.Identity()
	return c.JSON(http.StatusCreated, map[string]any{"user": identity})
}

// Login authenticates credentials and returns a session bundle
// (POST /api/auth/login). The remember flag only affects where the client
// stores the bundle; the server issues the same thing either way.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	sess, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"session": sess})
}

// Refresh exchanges a refresh token for a new session bundle
// (POST /api/auth/refresh).
func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.RefreshToken == "" {
		return apperror.NewBadRequest("refresh_token is required")
	}

	sess, err := h.service.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"session": sess})
}

// Logout destroys the current session bundle (POST /api/auth/logout).
func (h *Handler) Logout(c echo.Context) error {
	sess := GetSession(c)
	if sess != nil {
		if err := h.service.SignOut(c.Request().Context(), sess.AccessToken); err != nil {
			return err
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's identity (GET /api/auth/me).
func (h *Handler) Me(c echo.Context) error {
	sess := GetSession(c)
	if sess == nil {
		return apperror.NewUnauthorized("authentication required")
	}
	return c.JSON(http.StatusOK, map[string]any{"user": sess.User})
}

// UpdateProfile changes the authenticated user's display name
// (PATCH /api/auth/profile).
func (h *Handler) UpdateProfile(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	user, err := h.service.UpdateProfile(c.Request().Context(), GetUserID(c), req.FullName)
	if err != nil {
		return err
	}

	identity := user.Identity()
	return c.JSON(http.StatusOK, map[string]any{"user": identity})
}

// ChangePassword replaces the authenticated user's password
// (POST /api/auth/change-password). The current password must be supplied
// again so a hijacked session alone can't lock the owner out.
func (h *Handler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if err := h.service.ChangePassword(c.Request().Context(), GetUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ForgotPassword initiates a password reset (POST /api/auth/forgot-password).
// Always responds 202 so the endpoint does not reveal which emails are registered.
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if err := h.service.InitiatePasswordReset(c.Request().Context(), req.Email, req.RedirectTo); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "if an account exists for that email, a reset link has been sent",
	})
}

// ResetPassword completes a password reset (POST /api/auth/reset-password).
func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Token == "" {
		return apperror.NewBadRequest("token is required")
	}

	if err := h.service.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
