package authstate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hoangnv-dev/taskhub/internal/apperror"
	"github.com/hoangnv-dev/taskhub/internal/auth"
	"github.com/hoangnv-dev/taskhub/internal/gateway"
	"github.com/hoangnv-dev/taskhub/internal/session"
)

// Coordinator owns the auth lifecycle on the client side. Start restores
// any saved session and begins mirroring gateway auth events into the
// identity state. Session-carrying events re-save the (possibly rotated)
// bundle under the existing remember preference; a sign-out event wipes the
// saved session so the next start comes up signed out.
type Coordinator struct {
	store *session.Store
	gw    gateway.Gateway
	state *IdentityState

	sub       *gateway.Subscription
	ready     chan struct{}
	closeOnce sync.Once
}

// NewCoordinator creates a coordinator over the store and gateway. Call
// Start before reading identity, and Close when shutting down.
func NewCoordinator(store *session.Store, gw gateway.Gateway) *Coordinator {
	return &Coordinator{
		store: store,
		gw:    gw,
		state: NewIdentityState(),
		ready: make(chan struct{}),
	}
}

// State exposes the identity container for readers and watchers.
func (c *Coordinator) State() *IdentityState {
	return c.state
}

// Ready is closed once the initial restoration has published its verdict.
// Consumers that must not observe the pre-restoration nil (route guards,
// list controllers) wait on it.
func (c *Coordinator) Ready() <-chan struct{} {
	return c.ready
}

// Start subscribes to gateway auth events, restores the saved session if
// there is one, and publishes the initial identity. The event loop keeps
// running until Close.
//
// Restoration is deliberately forgiving: if the gateway refuses the saved
// bundle we still publish the identity embedded in it and log the
// inconsistency, because a stale-but-present identity beats bouncing the
// user to the login screen on a transient backend error.
func (c *Coordinator) Start(ctx context.Context) {
	// Subscribe before touching the gateway so no event slips between
	// restoration and the loop.
	c.sub = c.gw.OnAuthStateChange()
	go c.consume()

	if saved := c.store.Load(ctx); saved != nil {
		if err := c.gw.SetSession(ctx, saved); err != nil {
			slog.Warn("session restore: gateway rejected saved session, publishing stored identity anyway",
				slog.Any("error", err),
			)
		}
		c.state.publish(&saved.User)
	} else {
		c.state.publish(nil)
	}

	close(c.ready)
}

// Close detaches from the gateway and stops the event loop. Identity
// reads keep working; they just stop updating.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		if c.sub != nil {
			c.sub.Unsubscribe()
		}
	})
}

// RequireIdentity is the route-guard check: it waits for restoration, then
// returns the current identity. When the published state says signed out it
// double-checks with the gateway directly, so a session established a
// moment ago (or an update dropped by a slow watcher) still counts.
func (c *Coordinator) RequireIdentity(ctx context.Context) (*auth.Identity, error) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if identity := c.state.Current(); identity != nil {
		return identity, nil
	}

	sess, err := c.gw.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return &sess.User, nil
	}
	return nil, apperror.NewUnauthorized("sign in to continue")
}

// consume mirrors gateway auth events into the identity state until the
// subscription closes.
func (c *Coordinator) consume() {
	for ev := range c.sub.C {
		if ev.Session == nil {
			// Signed out: wipe the saved session so the next start
			// doesn't resurrect it.
			if err := c.store.Clear(context.Background()); err != nil {
				slog.Warn("failed to clear saved session on sign-out", slog.Any("error", err))
			}
			c.state.publish(nil)
			continue
		}

		// Adoption and refresh rotate the bundle server-side, retiring the
		// old tokens. Persist the replacement under the existing remember
		// preference so the next start doesn't load dead tokens.
		if err := c.store.Resave(context.Background(), ev.Session); err != nil {
			slog.Warn("failed to persist rotated session", slog.Any("error", err))
		}
		c.state.publish(&ev.Session.User)
	}
}
