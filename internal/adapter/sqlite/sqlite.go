// Package sqlite implements the session repository on an embedded SQLite
// database through gorm.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"opspanel/internal/domain"

	glebarez "github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SessionRecord is the persisted row for one browser session.
type SessionRecord struct {
	ID                 string         `gorm:"primaryKey;type:text"`
	Username           string         `gorm:"type:text;not null"`
	SealedToken        string         `gorm:"type:text;not null"`
	Permissions        datatypes.JSON `gorm:"type:json"`
	IdentityCreatedAt  string         `gorm:"type:text"`
	IdentityModifiedAt string         `gorm:"type:text"`
	UserAgent          string         `gorm:"type:text"`
	IP                 string         `gorm:"type:text"`
	StartedAt          time.Time      `gorm:"not null"`
	ExpiresAt          time.Time      `gorm:"not null;index"`
}

// TableName pins the table name.
func (SessionRecord) TableName() string { return "operator_sessions" }

// Open opens (or creates) the database at dsn and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(glebarez.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&SessionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

var _ domain.SessionRepository = (*SessionRepo)(nil)

// SessionRepo implements domain.SessionRepository with gorm.
type SessionRepo struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSessionRepo wraps db.
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db, now: time.Now}
}

// Save upserts the session row.
func (r *SessionRepo) Save(ctx context.Context, s *domain.Session) error {
	perms := s.Permissions
	if perms == nil {
		perms = []string{}
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	rec := SessionRecord{
		ID:                 s.ID,
		Username:           s.Username,
		SealedToken:        s.SealedToken,
		Permissions:        datatypes.JSON(raw),
		IdentityCreatedAt:  s.CreatedAt,
		IdentityModifiedAt: s.ModifiedAt,
		UserAgent:          s.UserAgent,
		IP:                 s.IP,
		StartedAt:          s.StartedAt.UTC(),
		ExpiresAt:          s.ExpiresAt.UTC(),
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetByID returns the session or (nil, nil) when absent.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var rec SessionRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var perms []string
	if len(rec.Permissions) > 0 {
		if err := json.Unmarshal(rec.Permissions, &perms); err != nil {
			return nil, fmt.Errorf("decode permissions: %w", err)
		}
	}
	return &domain.Session{
		ID:          rec.ID,
		Username:    rec.Username,
		SealedToken: rec.SealedToken,
		Permissions: perms,
		CreatedAt:   rec.IdentityCreatedAt,
		ModifiedAt:  rec.IdentityModifiedAt,
		UserAgent:   rec.UserAgent,
		IP:          rec.IP,
		StartedAt:   rec.StartedAt,
		ExpiresAt:   rec.ExpiresAt,
	}, nil
}

// Delete removes the session row. Missing rows are not an error.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&SessionRecord{}).Error
}

// DeleteExpired removes every row past its expiry.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("expires_at < ?", r.now().UTC()).Delete(&SessionRecord{}).Error
}
