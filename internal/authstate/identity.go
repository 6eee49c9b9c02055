// Package authstate tracks who is signed in. A single coordinator restores
// the saved session at startup, listens for auth changes from the gateway,
// and publishes the resulting identity to the rest of the client. Everyone
// else only reads.
package authstate

import (
	"sync"

	"github.com/hoangnv-dev/taskhub/internal/auth"
)

// identityBuffer is the per-watcher channel capacity.
const identityBuffer = 8

// IdentityState holds the current signed-in identity, nil when signed out.
// The coordinator is the only writer; any number of readers may call
// Current or Watch concurrently.
type IdentityState struct {
	mu       sync.RWMutex
	current  *auth.Identity
	watchers map[int]chan *auth.Identity
	nextID   int
}

// NewIdentityState creates a signed-out identity state.
func NewIdentityState() *IdentityState {
	return &IdentityState{watchers: make(map[int]chan *auth.Identity)}
}

// Current returns the identity as of the last publish, or nil when signed
// out.
func (s *IdentityState) Current() *auth.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Watch returns a channel that receives every subsequent identity change
// and a stop function that detaches it and closes the channel. Delivery is
// best effort: a watcher that stops reading drops updates, it never blocks
// the writer.
func (s *IdentityState) Watch() (<-chan *auth.Identity, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	ch := make(chan *auth.Identity, identityBuffer)
	s.watchers[id] = ch

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, stop
}

// publish replaces the current identity and fans the change out to
// watchers. Only the coordinator calls this.
func (s *IdentityState) publish(identity *auth.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = identity
	for _, ch := range s.watchers {
		select {
		case ch <- identity:
		default:
		}
	}
}
