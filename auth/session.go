package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultSessionTTL = 12 * time.Hour

// Session is the explicit login state a UI hands back on every call.
type Session struct {
	Token    string
	Username string
	Created  time.Time
	Expires  time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.Expires)
}

// Sessions is an in-memory registry of issued sessions, safe for
// concurrent use.
type Sessions struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	byToken map[string]*Session
}

func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		ttl:     ttl,
		now:     time.Now,
		byToken: make(map[string]*Session),
	}
}

// Issue creates a new session for username.
func (s *Sessions) Issue(username string) *Session {
	now := s.now()
	sess := &Session{
		Token:    uuid.NewString(),
		Username: username,
		Created:  now,
		Expires:  now.Add(s.ttl),
	}

	s.mu.Lock()
	s.byToken[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

// Lookup resolves a token. Expired sessions are dropped and reported as
// missing.
func (s *Sessions) Lookup(token string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.byToken[token]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if sess.Expired(s.now()) {
		s.Revoke(token)
		return nil, false
	}
	return sess, true
}

func (s *Sessions) Revoke(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byToken[token]
	delete(s.byToken, token)
	return ok
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *Sessions) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for tok, sess := range s.byToken {
		if sess.Expired(now) {
			delete(s.byToken, tok)
			n++
		}
	}
	return n
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byToken)
}
