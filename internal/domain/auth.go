// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"fmt"
	"time"
)

// Identity is an operator as reported by the upstream token verification
// endpoint.
type Identity struct {
	Username    string   `json:"username"`
	Token       string   `json:"token"`
	Active      bool     `json:"active"`
	Permissions []string `json:"permissions"`
	CreatedAt   string   `json:"createdAt"`
	ModifiedAt  string   `json:"modifiedAt"`
}

// String never includes the bearer token.
func (i Identity) String() string {
	return fmt.Sprintf("Identity{username=%q active=%t permissions=%d}", i.Username, i.Active, len(i.Permissions))
}

// Clone returns a deep copy so callers cannot mutate shared permission slices.
func (i Identity) Clone() Identity {
	out := i
	if i.Permissions != nil {
		out.Permissions = make([]string, len(i.Permissions))
		copy(out.Permissions, i.Permissions)
	}
	return out
}

// Session is the durable record behind one browser session. SealedToken holds
// the bearer token in sealed form; it is never stored in plaintext.
type Session struct {
	ID          string
	Username    string
	SealedToken string
	Permissions []string
	CreatedAt   string
	ModifiedAt  string
	UserAgent   string
	IP          string
	ExpiresAt   time.Time
	StartedAt   time.Time
}

// SessionRepository defines the port for session persistence operations.
// GetByID returns (nil, nil) when no session exists.
type SessionRepository interface {
	Save(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) error
}

// TokenSealer protects bearer tokens at rest.
type TokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}
