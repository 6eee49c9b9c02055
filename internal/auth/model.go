// Package auth handles user accounts, credential verification, and token
// sessions for Taskhub. It provides registration, login, token refresh,
// logout, password reset, and profile updates. Sessions are opaque token
// bundles stored in Redis.
package auth

import (
	"time"
)

// User represents a registered Taskhub user. This is the domain model used
// throughout the application. Database scanning and JSON marshaling use this
// struct directly.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `json:"-"` // Never expose in JSON responses.
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Identity is the minimal user-facing projection of an account: what the
// rest of the application needs to know about "who is logged in". Derived
// from a User or embedded in a Session.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Identity returns the read-only projection of this user.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, FullName: u.FullName}
}

// Session is the credential bundle issued on login. The access token
// authorizes requests until ExpiresAt; the refresh token mints a new bundle
// after that. The bundle embeds the user identity so holders can resolve
// "who" without another round trip. Both tokens are keys into Redis.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest holds the data submitted by the registration form.
type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// LoginRequest holds the data submitted by the login form. Remember selects
// the durable storage scope on the client; the server issues the same bundle
// either way.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// RefreshRequest carries the refresh token for minting a new bundle.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UpdateProfileRequest holds the editable profile fields.
type UpdateProfileRequest struct {
	FullName string `json:"full_name"`
}

// ChangePasswordRequest replaces the password of a signed-in user. The
// current password is re-verified even though the request is authenticated.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ForgotPasswordRequest initiates a password reset for the given email.
type ForgotPasswordRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to"`
}

// ResetPasswordRequest completes a password reset with a token from email.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the validated input for creating a new user.
type RegisterInput struct {
	Email    string
	FullName string
	Password string
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}
