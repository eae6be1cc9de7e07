// Package redis implements the session repository on Redis. Key expiry is the
// session expiry, so DeleteExpired has nothing to do.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"opspanel/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "opspanel:session"

// record is the JSON value stored under each session key.
type record struct {
	Username    string    `json:"username"`
	SealedToken string    `json:"sealedToken"`
	Permissions []string  `json:"permissions"`
	CreatedAt   string    `json:"createdAt"`
	ModifiedAt  string    `json:"modifiedAt"`
	UserAgent   string    `json:"userAgent"`
	IP          string    `json:"ip"`
	StartedAt   time.Time `json:"startedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

var _ domain.SessionRepository = (*SessionRepo)(nil)

// SessionRepo stores sessions as JSON strings with a TTL.
type SessionRepo struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// NewSessionRepo constructs a SessionRepo. An empty prefix uses the default.
func NewSessionRepo(client *goredis.Client, prefix string) *SessionRepo {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &SessionRepo{client: client, prefix: prefix, now: time.Now}
}

func (r *SessionRepo) key(id string) string {
	return r.prefix + ":" + id
}

// Save writes the session with a TTL matching its expiry. An already expired
// session is deleted instead.
func (r *SessionRepo) Save(ctx context.Context, s *domain.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return r.Delete(ctx, s.ID)
	}
	payload, err := encode(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(s.ID), payload, ttl).Err()
}

// GetByID returns the session or (nil, nil) when the key is gone.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(id, raw)
}

// Delete removes the session key.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

// DeleteExpired is a no-op; Redis evicts keys on TTL.
func (r *SessionRepo) DeleteExpired(context.Context) error { return nil }

func encode(s *domain.Session) ([]byte, error) {
	perms := s.Permissions
	if perms == nil {
		perms = []string{}
	}
	b, err := json.Marshal(record{
		Username:    s.Username,
		SealedToken: s.SealedToken,
		Permissions: perms,
		CreatedAt:   s.CreatedAt,
		ModifiedAt:  s.ModifiedAt,
		UserAgent:   s.UserAgent,
		IP:          s.IP,
		StartedAt:   s.StartedAt,
		ExpiresAt:   s.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return b, nil
}

func decode(id string, raw []byte) (*domain.Session, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &domain.Session{
		ID:          id,
		Username:    rec.Username,
		SealedToken: rec.SealedToken,
		Permissions: rec.Permissions,
		CreatedAt:   rec.CreatedAt,
		ModifiedAt:  rec.ModifiedAt,
		UserAgent:   rec.UserAgent,
		IP:          rec.IP,
		StartedAt:   rec.StartedAt,
		ExpiresAt:   rec.ExpiresAt,
	}, nil
}
