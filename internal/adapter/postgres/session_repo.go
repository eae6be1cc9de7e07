package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"opspanel/internal/domain"

	"github.com/lib/pq"
)

var _ domain.SessionRepository = (*SessionRepo)(nil)

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db  *DB
	now func() time.Time
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db, now: time.Now}
}

// Save inserts the session or replaces the row with the same id.
func (r *SessionRepo) Save(ctx context.Context, s *domain.Session) error {
	perms := s.Permissions
	if perms == nil {
		perms = []string{}
	}
	_, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO operator_sessions
			(id, username, sealed_token, permissions, identity_created_at, identity_modified_at, user_agent, ip, started_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			sealed_token = EXCLUDED.sealed_token,
			permissions = EXCLUDED.permissions,
			identity_created_at = EXCLUDED.identity_created_at,
			identity_modified_at = EXCLUDED.identity_modified_at,
			user_agent = EXCLUDED.user_agent,
			ip = EXCLUDED.ip,
			started_at = EXCLUDED.started_at,
			expires_at = EXCLUDED.expires_at`,
		s.ID, s.Username, s.SealedToken, pq.Array(perms), s.CreatedAt, s.ModifiedAt,
		s.UserAgent, s.IP, s.StartedAt, s.ExpiresAt,
	)
	return err
}

// GetByID retrieves a session by id.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	var perms pq.StringArray
	err := r.db.sql.QueryRowContext(ctx,
		`SELECT id, username, sealed_token, permissions, identity_created_at, identity_modified_at, user_agent, ip, started_at, expires_at
		FROM operator_sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Username, &s.SealedToken, &perms, &s.CreatedAt, &s.ModifiedAt,
		&s.UserAgent, &s.IP, &s.StartedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Permissions = []string(perms)
	return &s, nil
}

// Delete deletes a session by id.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM operator_sessions WHERE id = $1", id)
	return err
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM operator_sessions WHERE expires_at < $1", r.now())
	return err
}
