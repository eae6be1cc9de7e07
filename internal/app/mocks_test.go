package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"opspanel/internal/domain"
)

// mockSessionRepo keeps records in a map unless a function field overrides
// the operation.
type mockSessionRepo struct {
	saveFn          func(ctx context.Context, s *domain.Session) error
	getByIDFn       func(ctx context.Context, id string) (*domain.Session, error)
	deleteFn        func(ctx context.Context, id string) error
	deleteExpiredFn func(ctx context.Context) error

	mu      sync.Mutex
	records map[string]domain.Session
}

func (m *mockSessionRepo) Save(ctx context.Context, s *domain.Session) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[string]domain.Session)
	}
	m.records[s.ID] = *s
	return nil
}

func (m *mockSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) error {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return nil
}

func (m *mockSessionRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type mockUpstream struct {
	verifyFn  func(ctx context.Context, token string) (*domain.Identity, error)
	metricsFn func(ctx context.Context, bearer string, q domain.MetricsQuery) ([]domain.MetricRecord, error)
}

func (m *mockUpstream) VerifyToken(ctx context.Context, token string) (*domain.Identity, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, token)
	}
	return nil, errors.New("not configured")
}

func (m *mockUpstream) PspMetrics(ctx context.Context, bearer string, q domain.MetricsQuery) ([]domain.MetricRecord, error) {
	if m.metricsFn != nil {
		return m.metricsFn(ctx, bearer, q)
	}
	return nil, nil
}

// prefixSealer is a reversible stand-in for the real sealer.
type prefixSealer struct{}

func (prefixSealer) Seal(p string) (string, error) { return "sealed:" + p, nil }

func (prefixSealer) Open(s string) (string, error) {
	if !strings.HasPrefix(s, "sealed:") {
		return "", errors.New("malformed")
	}
	return strings.TrimPrefix(s, "sealed:"), nil
}

func activeIdentity(perms ...string) *domain.Identity {
	return &domain.Identity{
		Username:    "operator",
		Token:       "tok-0123456789",
		Active:      true,
		Permissions: perms,
		CreatedAt:   "2024-01-01",
		ModifiedAt:  "2024-02-01",
	}
}
