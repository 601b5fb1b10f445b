package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"agentdesk/backend"
	"agentdesk/config"
)

// SessionTokenKey is the durable storage key of the persisted session token.
const SessionTokenKey = "session_token"

var ErrPartialSession = errors.New("session requires both a token and a user")

type User = backend.User

// Session is the authenticated identity plus bearer token. Token and User are
// both set or both empty.
type Session struct {
	Token string
	User  *User
}

func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// identified reports whether u carries any identity at all. A login or
// verify response without a user decodes to the zero User.
func identified(u User) bool {
	return u.Email != "" || u.Subject != "" || len(u.Attributes) > 0
}

// TokenStorage is durable client storage with localStorage semantics.
type TokenStorage interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

type Verifier interface {
	Verify(ctx context.Context, token string) (backend.User, error)
}

// SessionStore is the single source of truth for "is the user authenticated".
// The persisted copy is written in the same call as the in-memory one.
type SessionStore struct {
	mu       sync.RWMutex
	session  Session
	storage  TokenStorage
	verifier Verifier
}

func NewSessionStore(storage TokenStorage, verifier Verifier) *SessionStore {
	return &SessionStore{
		storage:  storage,
		verifier: verifier,
	}
}

// Get returns a copy of the current session.
func (s *SessionStore) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Session{Token: s.session.Token}
	if s.session.User != nil {
		user := *s.session.User
		out.User = &user
	}
	return out
}

func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

func (s *SessionStore) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Authenticated()
}

// Set establishes a session and persists its token. The in-memory session is
// live even when persisting fails; the error only means a reload will not
// find it.
func (s *SessionStore) Set(token string, user User) error {
	if token == "" || !identified(user) {
		return ErrPartialSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = Session{Token: token, User: &user}
	if err := s.storage.SetItem(SessionTokenKey, token); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[SessionStore] session set for %s", user.Email)
	}
	return nil
}

// Clear removes the persisted token and resets the session to absent.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = Session{}
	if err := s.storage.RemoveItem(SessionTokenKey); err != nil {
		return fmt.Errorf("failed to remove session token: %w", err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[SessionStore] session cleared")
	}
	return nil
}

// Restore revalidates a persisted token against the proxy. On success the
// verified user becomes the live session; on any failure the stored token is
// discarded and ok is false. It blocks for as long as the verify call does.
func (s *SessionStore) Restore(ctx context.Context) (session Session, ok bool) {
	token, found, err := s.storage.GetItem(SessionTokenKey)
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[SessionStore] Restore: failed to read persisted token: %v", err)
		}
		s.discard()
		return Session{}, false
	}
	if !found || token == "" {
		return Session{}, false
	}

	user, err := s.verifier.Verify(ctx, token)
	if err == nil && !identified(user) {
		err = ErrPartialSession
	}
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[SessionStore] Restore: session validation failed: %v", err)
		}
		s.discard()
		return Session{}, false
	}

	s.mu.Lock()
	s.session = Session{Token: token, User: &user}
	s.mu.Unlock()

	return s.Get(), true
}

func (s *SessionStore) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = Session{}
	if err := s.storage.RemoveItem(SessionTokenKey); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[SessionStore] failed to discard persisted token: %v", err)
	}
}
