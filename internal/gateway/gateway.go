// Package gateway is the single seam between the client-side task
// experience (session store, auth coordinator, list and form controllers)
// and the backend services. Everything those components need from the
// outside world goes through the Gateway interface, so they can be driven
// against an in-process implementation in one binary or against a fake in
// tests.
package gateway

import (
	"context"

	"github.com/hoangnv-dev/taskhub/internal/auth"
	"github.com/hoangnv-dev/taskhub/internal/tasks"
)

// EventType classifies an auth state change.
type EventType string

const (
	// EventSignedIn fires when a session becomes live, whether through
	// fresh credentials or adoption of a restored bundle.
	EventSignedIn EventType = "signed-in"

	// EventTokenRefreshed fires when an existing session is swapped for a
	// fresh bundle. The user stays the same; the tokens change.
	EventTokenRefreshed EventType = "token-refreshed"

	// EventSignedOut fires when the session ends. Session is nil.
	EventSignedOut EventType = "signed-out"
)

// Event is one auth state change. Session is nil exactly when Type is
// EventSignedOut.
type Event struct {
	Type    EventType
	Session *auth.Session
}

// Subscription is a live feed of auth state changes. Read events from C;
// call Unsubscribe when done, after which C is closed.
type Subscription struct {
	C      <-chan Event
	cancel func()
}

// Unsubscribe detaches the subscription and closes C. Safe to call more
// than once.
func (s *Subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewSubscription wraps a channel and cancel func as a Subscription. Meant
// for Gateway implementations outside this package, including test fakes.
// cancel must tolerate being called more than once.
func NewSubscription(ch <-chan Event, cancel func()) *Subscription {
	return &Subscription{C: ch, cancel: cancel}
}

// Gateway is the remote-data surface the client half of Taskhub runs
// against. Auth operations mutate the gateway's notion of the current
// session and emit events; task operations are scoped to that session's
// user.
type Gateway interface {
	// SignUp creates an account and returns its identity. It does not
	// start a session.
	SignUp(ctx context.Context, email, fullName, password string) (*auth.Identity, error)

	// SignIn trades credentials for a session bundle and makes it the
	// current session. Emits EventSignedIn on success.
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)

	// SetSession adopts a previously issued bundle (typically restored
	// from client storage) as the current session. A bundle with a stale
	// access token is refreshed transparently. Emits EventSignedIn on
	// success.
	SetSession(ctx context.Context, sess *auth.Session) error

	// GetSession returns the current session, or (nil, nil) when signed
	// out.
	GetSession(ctx context.Context) (*auth.Session, error)

	// RefreshSession swaps the current session for a fresh bundle. Emits
	// EventTokenRefreshed on success.
	RefreshSession(ctx context.Context) (*auth.Session, error)

	// SignOut ends the current session and emits EventSignedOut. The local
	// session ends even when server-side revocation fails; the error is
	// still returned. Signing out while signed out is a no-op.
	SignOut(ctx context.Context) error

	// OnAuthStateChange subscribes to auth events. Events fired before
	// the subscription exists are not replayed.
	OnAuthStateChange() *Subscription

	// UpdateUser changes the current user's display name.
	UpdateUser(ctx context.Context, fullName string) (*auth.Identity, error)

	// ChangePassword replaces the current user's password. The current
	// password is re-verified; the session stays live.
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error

	// ResetPasswordForEmail starts the password reset flow. Always
	// succeeds for well-formed input regardless of whether the account
	// exists.
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error

	// InsertTask creates a task owned by the current user.
	InsertTask(ctx context.Context, input tasks.CreateInput) (*tasks.Task, error)

	// SelectTasks runs a filtered, paginated list query over the current
	// user's tasks.
	SelectTasks(ctx context.Context, filter tasks.ListFilter) (*tasks.TaskPage, error)

	// GetTask fetches one of the current user's tasks by ID.
	GetTask(ctx context.Context, id string) (*tasks.Task, error)

	// UpdateTask replaces a task's mutable fields.
	UpdateTask(ctx context.Context, id string, input tasks.UpdateInput) (*tasks.Task, error)

	// DeleteTask removes one of the current user's tasks.
	DeleteTask(ctx context.Context, id string) error
}
