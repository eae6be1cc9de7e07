package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"opspanel/internal/domain"
)

// AuthState is the observable snapshot delivered to subscribers.
type AuthState struct {
	IsAuthenticated bool     `json:"isAuthenticated"`
	Username        string   `json:"username,omitempty"`
	Permissions     []string `json:"permissions"`
}

// AuthModel holds the identity and permissions of one browser session.
//
// The identity is either fully present or fully absent. Every Login and
// Logout is written through to the session repository before observers are
// notified.
type AuthModel struct {
	id     string
	repo   domain.SessionRepository
	sealer domain.TokenSealer
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	identity  *domain.Identity
	userAgent string
	ip        string

	subMu   sync.Mutex
	subs    map[int]func(AuthState)
	nextSub int
}

// NewAuthModel creates an unauthenticated model bound to session id.
func NewAuthModel(id string, repo domain.SessionRepository, sealer domain.TokenSealer, ttl time.Duration) *AuthModel {
	return &AuthModel{
		id:     id,
		repo:   repo,
		sealer: sealer,
		ttl:    ttl,
		now:    time.Now,
		subs:   make(map[int]func(AuthState)),
	}
}

// ID returns the session id, which is also the storage key.
func (m *AuthModel) ID() string { return m.id }

func (m *AuthModel) bindClient(userAgent, ip string) {
	m.mu.Lock()
	m.userAgent, m.ip = userAgent, ip
	m.mu.Unlock()
}

// Login replaces the current identity and persists it. The caller must have
// already rejected inactive identities. On a persistence failure the model is
// left unchanged.
func (m *AuthModel) Login(ctx context.Context, identity domain.Identity) error {
	sealed, err := m.sealer.Seal(identity.Token)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}

	m.mu.Lock()
	now := m.now()
	rec := &domain.Session{
		ID:          m.id,
		Username:    identity.Username,
		SealedToken: sealed,
		Permissions: append([]string(nil), identity.Permissions...),
		CreatedAt:   identity.CreatedAt,
		ModifiedAt:  identity.ModifiedAt,
		UserAgent:   m.userAgent,
		IP:          m.ip,
		StartedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
	}
	if err := m.repo.Save(ctx, rec); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	id := identity.Clone()
	m.identity = &id
	state := m.stateLocked()
	m.mu.Unlock()

	m.publish(state)
	return nil
}

// Logout clears the identity and the persisted record. It is a no-op when the
// model is already logged out, apart from deleting any stale record.
func (m *AuthModel) Logout(ctx context.Context) error {
	m.mu.Lock()
	wasAuthenticated := m.identity != nil
	m.identity = nil
	state := m.stateLocked()
	m.mu.Unlock()

	err := m.repo.Delete(ctx, m.id)
	if wasAuthenticated {
		m.publish(state)
	}
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Restore rehydrates the model from the repository.
func (m *AuthModel) Restore(ctx context.Context) error {
	rec, err := m.repo.GetByID(ctx, m.id)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrSessionNotFound
	}
	if m.now().After(rec.ExpiresAt) {
		_ = m.repo.Delete(ctx, m.id)
		return ErrSessionExpired
	}
	token, err := m.sealer.Open(rec.SealedToken)
	if err != nil {
		// Sealed under a different key, e.g. after a restart without SESSION_SECRET.
		_ = m.repo.Delete(ctx, m.id)
		return ErrSessionNotFound
	}

	m.mu.Lock()
	m.identity = &domain.Identity{
		Username:    rec.Username,
		Token:       token,
		Active:      true,
		Permissions: append([]string(nil), rec.Permissions...),
		CreatedAt:   rec.CreatedAt,
		ModifiedAt:  rec.ModifiedAt,
	}
	m.userAgent, m.ip = rec.UserAgent, rec.IP
	m.mu.Unlock()
	return nil
}

// IsAuthenticated reports whether an identity is present.
func (m *AuthModel) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity != nil
}

// Identity returns a copy of the current identity.
func (m *AuthModel) Identity() (domain.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return domain.Identity{}, false
	}
	return m.identity.Clone(), true
}

// Permissions returns a copy of the held permissions; empty when logged out.
func (m *AuthModel) Permissions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return []string{}
	}
	return append([]string{}, m.identity.Permissions...)
}

// BearerToken returns the credential to attach to upstream calls.
func (m *AuthModel) BearerToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return "", false
	}
	return m.identity.Token, true
}

// HasPermission reports whether any held permission starts with prefix.
func (m *AuthModel) HasPermission(prefix string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return false
	}
	return domain.HasPermission(m.identity.Permissions, prefix)
}

// HasAnyPermission reports whether HasPermission holds for any prefix.
func (m *AuthModel) HasAnyPermission(prefixes []string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return false
	}
	return domain.HasAnyPermission(m.identity.Permissions, prefixes)
}

// State returns the current observable snapshot.
func (m *AuthModel) State() AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

func (m *AuthModel) stateLocked() AuthState {
	if m.identity == nil {
		return AuthState{Permissions: []string{}}
	}
	return AuthState{
		IsAuthenticated: true,
		Username:        m.identity.Username,
		Permissions:     append([]string{}, m.identity.Permissions...),
	}
}

// Subscribe registers fn to run after every state change. The returned func
// removes the subscription.
func (m *AuthModel) Subscribe(fn func(AuthState)) func() {
	m.subMu.Lock()
	key := m.nextSub
	m.nextSub++
	m.subs[key] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, key)
		m.subMu.Unlock()
	}
}

func (m *AuthModel) publish(state AuthState) {
	m.subMu.Lock()
	fns := make([]func(AuthState), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

var _ domain.PermissionChecker = (*AuthModel)(nil)
