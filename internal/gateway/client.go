package gateway

import (
	"context"
	"sync"

	"github.com/hoangnv-dev/taskhub/internal/apperror"
	"github.com/hoangnv-dev/taskhub/internal/auth"
	"github.com/hoangnv-dev/taskhub/internal/tasks"
)

// eventBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind starts dropping events rather than blocking auth
// operations.
const eventBuffer = 8

// Client is the in-process Gateway implementation. It calls the auth and
// task services directly and keeps the current session in memory, guarded
// by a mutex so auth operations and task operations can race safely.
type Client struct {
	authSvc auth.AuthService
	taskSvc tasks.TaskService

	mu      sync.Mutex
	session *auth.Session

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewClient creates an in-process gateway over the given services.
func NewClient(authSvc auth.AuthService, taskSvc tasks.TaskService) *Client {
	return &Client{
		authSvc: authSvc,
		taskSvc: taskSvc,
		subs:    make(map[int]chan Event),
	}
}

var _ Gateway = (*Client)(nil)

func (c *Client) SignUp(ctx context.Context, email, fullName, password string) (*auth.Identity, error) {
	user, err := c.authSvc.Register(ctx, auth.RegisterInput{
		Email:    email,
		FullName: fullName,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	identity := user.Identity()
	return &identity, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	sess, err := c.authSvc.Login(ctx, auth.LoginInput{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	c.setCurrent(sess)
	c.publish(Event{Type: EventSignedIn, Session: sess})
	return sess, nil
}

func (c *Client) SetSession(ctx context.Context, sess *auth.Session) error {
	adopted, err := c.authSvc.AdoptSession(ctx, sess)
	if err != nil {
		return err
	}

	c.setCurrent(adopted)
	c.publish(Event{Type: EventSignedIn, Session: adopted})
	return nil
}

func (c *Client) GetSession(ctx context.Context) (*auth.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, nil
}

func (c *Client) RefreshSession(ctx context.Context) (*auth.Session, error) {
	c.mu.Lock()
	current := c.session
	c.mu.Unlock()

	if current == nil {
		return nil, apperror.NewUnauthorized("no active session")
	}

	fresh, err := c.authSvc.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return nil, err
	}

	c.setCurrent(fresh)
	c.publish(Event{Type: EventTokenRefreshed, Session: fresh})
	return fresh, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := c.session
	c.session = nil
	c.mu.Unlock()

	if current == nil {
		return nil
	}

	// The local session is gone either way. Publish that before reporting a
	// revocation failure, so watchers and the persisted copy agree with the
	// state task operations will see.
	err := c.authSvc.SignOut(ctx, current.AccessToken)
	c.publish(Event{Type: EventSignedOut, Session: nil})
	return err
}

func (c *Client) OnAuthStateChange() *Subscription {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++

	ch := make(chan Event, eventBuffer)
	c.subs[id] = ch

	var once sync.Once
	return &Subscription{
		C: ch,
		cancel: func() {
			once.Do(func() {
				c.subMu.Lock()
				delete(c.subs, id)
				c.subMu.Unlock()
				close(ch)
			})
		},
	}
}

func (c *Client) UpdateUser(ctx context.Context, fullName string) (*auth.Identity, error) {
	sess, err := c.requireSession()
	if err != nil {
		return nil, err
	}

	user, err := c.authSvc.UpdateProfile(ctx, sess.User.ID, fullName)
	if err != nil {
		return nil, err
	}
	identity := user.Identity()

	// Keep the cached session's identity in step with the profile.
	c.mu.Lock()
	if c.session != nil && c.session.User.ID == identity.ID {
		c.session.User = identity
	}
	c.mu.Unlock()

	return &identity, nil
}

func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	sess, err := c.requireSession()
	if err != nil {
		return err
	}
	return c.authSvc.ChangePassword(ctx, sess.User.ID, currentPassword, newPassword)
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	return c.authSvc.InitiatePasswordReset(ctx, email, redirectTo)
}

func (c *Client) InsertTask(ctx context.Context, input tasks.CreateInput) (*tasks.Task, error) {
	sess, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	return c.taskSvc.Create(ctx, sess.User.ID, input)
}

func (c *Client) SelectTasks(ctx context.Context, filter tasks.ListFilter) (*tasks.TaskPage, error) {
	sess, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	return c.taskSvc.List(ctx, sess.User.ID, filter)
}

func (c *Client) GetTask(ctx context.Context, id string) (*tasks.Task, error) {
	sess, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	return c.taskSvc.Get(ctx, sess.User.ID, id)
}

func (c *Client) UpdateTask(ctx context.Context, id string, input tasks.UpdateInput) (*tasks.Task, error) {
	sess, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	return c.taskSvc.Update(ctx, sess.User.ID, id, input)
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	sess, err := c.requireSession()
	if err != nil {
		return err
	}
	return c.taskSvc.Delete(ctx, sess.User.ID, id)
}

// --- internals ---

func (c *Client) setCurrent(sess *auth.Session) {
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()
}

// requireSession returns the current session or an unauthorized error.
func (c *Client) requireSession() (*auth.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, apperror.NewUnauthorized("not signed in")
	}
	return c.session, nil
}

// publish fans an event out to all subscribers. Delivery is best effort: a
// full subscriber channel drops the event instead of blocking the caller.
func (c *Client) publish(ev Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
