// Package session holds the process-wide session credential.
//
// The Store is an explicit, injectable singleton: initialized empty at
// process start, populated only by a validated token exchange, cleared on
// logout or an authoritative unauthenticated signal. The flow engine is the
// single writer; every other consumer only reads.
package session

import (
	"sync"
	"time"
)

// Session is the credential obtained from a successful token exchange.
// Construction is atomic: a Session is never partially populated.
type Session struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	ObtainedAt  time.Time
}

// Store is the process-wide holder of the current session
type Store struct {
	mu      sync.RWMutex
	current *Session
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{}
}

// Set replaces the current session atomically
func (s *Store) Set(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &sess
}

// Clear removes the current session
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Current returns the session and whether one is present
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}
