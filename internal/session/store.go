package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hoangnv-dev/taskhub/internal/auth"
)

// Storage keys. The session bundle lives under sessionKey in whichever
// scope was selected at save time; the remember flag lives in the durable
// scope only and records which scope that was.
const (
	sessionKey  = "taskhub.session"
	rememberKey = "taskhub.session.remember"

	rememberFlagValue = "true"
)

// Store saves and restores the session bundle across client restarts. The
// remember flag decides the scope: durable when the user asked to stay
// signed in, ephemeral otherwise. Restoration trusts the flag, so a bundle
// left behind in the non-selected scope is ignored rather than cleaned up.
type Store struct {
	durable   Scope
	ephemeral Scope
}

// NewStore creates a session store over the two scopes.
func NewStore(durable, ephemeral Scope) *Store {
	return &Store{durable: durable, ephemeral: ephemeral}
}

// Save persists the bundle in the scope selected by remember and records
// the choice in the durable remember flag. It does not touch the session
// entry in the other scope.
func (s *Store) Save(ctx context.Context, sess *auth.Session, remember bool) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	if remember {
		if err := s.durable.Set(ctx, sessionKey, string(data)); err != nil {
			return err
		}
		return s.durable.Set(ctx, rememberKey, rememberFlagValue)
	}

	if err := s.ephemeral.Set(ctx, sessionKey, string(data)); err != nil {
		return err
	}
	return s.durable.Remove(ctx, rememberKey)
}

// Resave overwrites the saved bundle while keeping the remember preference
// of the previous Save. Token rotation goes through here: the backend hands
// out a replacement bundle and the scope choice still belongs to the user.
// With no prior save the bundle lands in the ephemeral scope.
func (s *Store) Resave(ctx context.Context, sess *auth.Session) error {
	flag, err := s.durable.Get(ctx, rememberKey)
	if err != nil {
		return err
	}
	return s.Save(ctx, sess, flag == rememberFlagValue)
}

// Load restores the bundle saved by the last Save, consulting the remember
// flag to pick the scope. It never fails: unreadable storage and corrupt
// payloads both read as "no saved session" and are logged, since the caller
// can always fall back to a fresh sign-in.
func (s *Store) Load(ctx context.Context) *auth.Session {
	scope := s.ephemeral
	flag, err := s.durable.Get(ctx, rememberKey)
	if err != nil {
		slog.Warn("session store: reading remember flag failed", slog.Any("error", err))
		return nil
	}
	if flag == rememberFlagValue {
		scope = s.durable
	}

	raw, err := scope.Get(ctx, sessionKey)
	if err != nil {
		slog.Warn("session store: reading saved session failed", slog.Any("error", err))
		return nil
	}
	if raw == "" {
		return nil
	}

	var sess auth.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		slog.Warn("session store: discarding corrupt saved session", slog.Any("error", err))
		return nil
	}
	return &sess
}

// Clear removes the saved session from both scopes and drops the remember
// flag. Clearing an already-empty store is a no-op, so repeated calls are
// safe.
func (s *Store) Clear(ctx context.Context) error {
	return errors.Join(
		s.durable.Remove(ctx, sessionKey),
		s.ephemeral.Remove(ctx, sessionKey),
		s.durable.Remove(ctx, rememberKey),
	)
}
