// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"opspanel/internal/domain"

	log "github.com/sirupsen/logrus"
)

// MinTokenLength is the shortest access token accepted at login.
const MinTokenLength = 10

var (
	// ErrTokenTooShort indicates a token below MinTokenLength.
	ErrTokenTooShort = errors.New("token must be at least 10 characters")
	// ErrInvalidToken indicates that the upstream rejected the token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenInactive indicates that the upstream reported the token as inactive.
	ErrTokenInactive = errors.New("token is not active")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
)

// AuthService verifies access tokens and manages browser sessions.
type AuthService struct {
	upstream domain.Upstream
	sessions domain.SessionRepository
	sealer   domain.TokenSealer
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	onLogout []func(sessionID string)
	onPurge  []func(cutoff time.Time)
}

// NewAuthService creates a new authentication service.
func NewAuthService(upstream domain.Upstream, sessions domain.SessionRepository, sealer domain.TokenSealer, ttl time.Duration) *AuthService {
	return &AuthService{
		upstream: upstream,
		sessions: sessions,
		sealer:   sealer,
		ttl:      ttl,
		now:      time.Now,
	}
}

// OnLogout registers fn to run whenever any session transitions to logged out.
func (s *AuthService) OnLogout(fn func(sessionID string)) {
	s.mu.Lock()
	s.onLogout = append(s.onLogout, fn)
	s.mu.Unlock()
}

// OnPurge registers fn to run after every PurgeExpired. Any session started
// before cutoff has expired.
func (s *AuthService) OnPurge(fn func(cutoff time.Time)) {
	s.mu.Lock()
	s.onPurge = append(s.onPurge, fn)
	s.mu.Unlock()
}

func (s *AuthService) newModel(id string) *AuthModel {
	m := NewAuthModel(id, s.sessions, s.sealer, s.ttl)
	m.now = s.now
	m.Subscribe(func(st AuthState) {
		if !st.IsAuthenticated {
			s.loggedOut(id)
		}
	})
	return m
}

func (s *AuthService) loggedOut(id string) {
	s.mu.Lock()
	hooks := append([]func(string){}, s.onLogout...)
	s.mu.Unlock()
	for _, h := range hooks {
		h(id)
	}
}

// Login verifies rawToken upstream and opens a new session for it.
func (s *AuthService) Login(ctx context.Context, rawToken, userAgent, ip string) (string, *AuthModel, error) {
	token := strings.TrimSpace(rawToken)
	if len(token) < MinTokenLength {
		return "", nil, ErrTokenTooShort
	}

	identity, err := s.upstream.VerifyToken(ctx, token)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if identity == nil || !identity.Active {
		return "", nil, ErrTokenInactive
	}
	if identity.Token == "" {
		identity.Token = token
	}

	id, err := generateSessionID()
	if err != nil {
		return "", nil, err
	}

	model := s.newModel(id)
	model.bindClient(userAgent, ip)
	if err := model.Login(ctx, *identity); err != nil {
		return "", nil, err
	}

	log.WithFields(log.Fields{"username": identity.Username, "permissions": len(identity.Permissions)}).Info("operator logged in")
	return id, model, nil
}

// Session restores the model persisted under sessionID.
func (s *AuthService) Session(ctx context.Context, sessionID string) (*AuthModel, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	model := s.newModel(sessionID)
	if err := model.Restore(ctx); err != nil {
		// Expired or purged: release anything still keyed by this id.
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrSessionNotFound) {
			s.loggedOut(sessionID)
		}
		return nil, err
	}
	return model, nil
}

// Logout invalidates a session. Unknown ids are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	model, err := s.Session(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			return nil
		}
		return err
	}
	return model.Logout(ctx)
}

// ForceLogout ends the session bound to ctx. It is invoked when the upstream
// rejects the session's credential.
func (s *AuthService) ForceLogout(ctx context.Context) {
	model := SessionFromContext(ctx)
	if model == nil {
		return
	}
	if err := model.Logout(ctx); err != nil {
		log.WithError(err).Warn("force logout: delete session")
		return
	}
	log.WithField("session", shortID(model.ID())).Info("session cleared after upstream 401")
}

// PurgeExpired deletes all expired session records.
func (s *AuthService) PurgeExpired(ctx context.Context) error {
	if err := s.sessions.DeleteExpired(ctx); err != nil {
		return err
	}
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	hooks := append([]func(time.Time){}, s.onPurge...)
	s.mu.Unlock()
	for _, h := range hooks {
		h(cutoff)
	}
	return nil
}

// RunSweeper calls PurgeExpired every interval until ctx is done.
func (s *AuthService) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.PurgeExpired(ctx); err != nil {
				log.WithError(err).Warn("purge expired sessions")
			}
		}
	}
}

// LoginFailureMessage is the operator-facing text for a failed login.
func LoginFailureMessage(err error) string {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var httpErr *domain.HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	switch {
	case errors.Is(err, ErrTokenTooShort), errors.Is(err, ErrTokenInactive):
		return err.Error()
	}
	return "Invalid token"
}

func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
