package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"opspanel/internal/domain"
)

// EmptyMetricsMessage is shown inline when a fetch succeeds with no rows.
const EmptyMetricsMessage = "No metrics found for the selected filters"

var (
	// ErrUnauthenticated indicates a fetch attempted without an identity.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrNoVendorsSelected indicates a fetch with an empty vendor selection.
	ErrNoVendorsSelected = errors.New("select at least one PSP vendor")
)

// MetricsResult is a reshaped metrics response ready for charting.
type MetricsResult struct {
	Generation   uint64              `json:"generation"`
	Query        domain.MetricsQuery `json:"query"`
	Rows         []domain.WideRow    `json:"rows"`
	Charts       []domain.Chart      `json:"charts"`
	Empty        bool                `json:"empty"`
	EmptyMessage string              `json:"emptyMessage,omitempty"`
	Stale        bool                `json:"stale"`
	FetchedAt    time.Time           `json:"fetchedAt"`
}

type metricsSlot struct {
	issued  uint64
	latest  *MetricsResult
	touched time.Time
}

// MetricsService fetches PSP metrics for a session and keeps the newest
// result per session.
type MetricsService struct {
	upstream domain.Upstream
	now      func() time.Time

	mu    sync.Mutex
	slots map[string]*metricsSlot
}

// NewMetricsService creates a MetricsService backed by upstream.
func NewMetricsService(upstream domain.Upstream) *MetricsService {
	return &MetricsService{
		upstream: upstream,
		now:      time.Now,
		slots:    make(map[string]*metricsSlot),
	}
}

// Fetch queries the upstream with the model's credential and reshapes the
// records. A response that was overtaken by a newer fetch for the same session
// is returned with Stale set and is not committed.
func (s *MetricsService) Fetch(ctx context.Context, model *AuthModel, q domain.MetricsQuery) (*MetricsResult, error) {
	if model == nil {
		return nil, ErrUnauthenticated
	}
	bearer, ok := model.BearerToken()
	if !ok {
		return nil, ErrUnauthenticated
	}
	if len(q.PspVendors) == 0 {
		return nil, ErrNoVendorsSelected
	}

	gen := s.begin(model.ID())

	records, err := s.upstream.PspMetrics(WithSession(ctx, model), bearer, q)
	if err != nil {
		return nil, err
	}

	rows := domain.Reshape(records)
	res := &MetricsResult{
		Generation: gen,
		Query:      q,
		Rows:       rows,
		Charts:     domain.Charts(q.PspVendors),
		Empty:      len(rows) == 0,
		FetchedAt:  s.now(),
	}
	if res.Empty {
		res.EmptyMessage = EmptyMetricsMessage
	}
	res.Stale = !s.commit(model.ID(), gen, res)
	return res, nil
}

// Latest returns the last committed result for sessionID.
func (s *MetricsService) Latest(sessionID string) (*MetricsResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[sessionID]
	if !ok || slot.latest == nil {
		return nil, false
	}
	return slot.latest, true
}

// Forget drops all state for sessionID. In-flight fetches for it will not
// commit.
func (s *MetricsService) Forget(sessionID string) {
	s.mu.Lock()
	delete(s.slots, sessionID)
	s.mu.Unlock()
}

// PurgeBefore drops every slot last used before cutoff. Sessions expire a
// fixed TTL after login, so a slot idle for longer than the TTL belongs to a
// dead session.
func (s *MetricsService) PurgeBefore(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, slot := range s.slots {
		if slot.touched.Before(cutoff) {
			delete(s.slots, id)
		}
	}
}

func (s *MetricsService) begin(sessionID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[sessionID]
	if !ok {
		slot = &metricsSlot{}
		s.slots[sessionID] = slot
	}
	slot.issued++
	slot.touched = s.now()
	return slot.issued
}

func (s *MetricsService) commit(sessionID string, gen uint64, res *MetricsResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[sessionID]
	if !ok || slot.issued != gen {
		return false
	}
	slot.latest = res
	return true
}
