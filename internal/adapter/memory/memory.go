// Package memory implements an in-memory session store for development and testing.
package memory

import (
	"context"
	"sync"
	"time"

	"opspanel/internal/domain"
)

// DB holds session records in process memory. Records do not survive a
// restart.
type DB struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	now      func() time.Time
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
	}
}

// Ensure interfaces are met.
var _ domain.SessionRepository = (*SessionRepo)(nil)

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Save inserts or replaces the session with the same ID.
func (r *SessionRepo) Save(ctx context.Context, s *domain.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[s.ID] = cloneSession(s)
	return nil
}

// GetByID retrieves a session by ID. Expired sessions are dropped on read.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[id]
	if !ok {
		return nil, nil
	}
	if r.db.now().After(s.ExpiresAt) {
		delete(r.db.sessions, id)
		return nil, nil
	}
	return cloneSession(s), nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, id)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}

// Len reports how many records are held, expired or not.
func (db *DB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.sessions)
}

func cloneSession(s *domain.Session) *domain.Session {
	out := *s
	out.Permissions = append([]string(nil), s.Permissions...)
	return &out
}
