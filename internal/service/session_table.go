package service

import (
	"sync"
	"time"
)

// Session is one active login.
type Session struct {
	ID        string
	UserID    string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionTable is the lock-protected set of active sessions owned by the
// auth service.
type SessionTable struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewSessionTable constructs an empty session table.
func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[string]Session)}
}

// Add registers a session, replacing any session with the same ID.
func (t *SessionTable) Add(session Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[session.ID] = session
}

// Remove ends a session and reports whether it existed.
func (t *SessionTable) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[id]; !ok {
		return false
	}
	delete(t.sessions, id)
	return true
}

// Get returns the session if it exists and has not expired at now.
func (t *SessionTable) Get(id string, now time.Time) (Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	session, ok := t.sessions[id]
	if !ok || !now.Before(session.ExpiresAt) {
		return Session{}, false
	}
	return session, true
}

// Prune drops sessions expired at now and returns how many were removed.
func (t *SessionTable) Prune(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, session := range t.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(t.sessions, id)
			removed++
		}
	}
	return removed
}

// Retain keeps only the sessions accepted by keep and returns how many were
// dropped.
func (t *SessionTable) Retain(keep func(Session) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, session := range t.sessions {
		if !keep(session) {
			delete(t.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sessions.
func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
