package memory

import (
	"context"
	"testing"
	"time"

	"opspanel/internal/domain"
)

func TestSessionRepository(t *testing.T) {
	db := New()
	repo := db.NewSessionRepo()
	ctx := context.Background()

	s := &domain.Session{
		ID:          "sess-1",
		Username:    "operator",
		SealedToken: "sealed",
		Permissions: []string{"projectx", "yal"},
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Caller mutations must not leak into the store.
	s.Permissions[0] = "mutated"

	got, err := repo.GetByID(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.Permissions[0] != "projectx" {
		t.Errorf("expected stored permissions to be a copy, got %v", got.Permissions)
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for unknown id, got (%v, %v)", missing, err)
	}

	if err := repo.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := repo.GetByID(ctx, "sess-1"); got != nil {
		t.Error("expected session to be deleted")
	}
	if err := repo.Delete(ctx, "sess-1"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestSessionRepository_Save_Replaces(t *testing.T) {
	repo := New().NewSessionRepo()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	_ = repo.Save(ctx, &domain.Session{ID: "s", Username: "a", ExpiresAt: exp})
	_ = repo.Save(ctx, &domain.Session{ID: "s", Username: "b", ExpiresAt: exp})

	got, _ := repo.GetByID(ctx, "s")
	if got == nil || got.Username != "b" {
		t.Errorf("expected replaced session, got %+v", got)
	}
}

func TestSessionRepository_Expiry(t *testing.T) {
	db := New()
	repo := db.NewSessionRepo()
	ctx := context.Background()

	now := time.Now()
	_ = repo.Save(ctx, &domain.Session{ID: "old", ExpiresAt: now.Add(-time.Minute)})
	_ = repo.Save(ctx, &domain.Session{ID: "older", ExpiresAt: now.Add(-time.Hour)})
	_ = repo.Save(ctx, &domain.Session{ID: "live", ExpiresAt: now.Add(time.Hour)})

	if got, _ := repo.GetByID(ctx, "old"); got != nil {
		t.Error("expected expired session to be hidden")
	}
	if db.Len() != 2 {
		t.Errorf("expected expired read to drop the record, have %d", db.Len())
	}

	if err := repo.DeleteExpired(ctx); err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if db.Len() != 1 {
		t.Errorf("expected 1 session left, got %d", db.Len())
	}
	if got, _ := repo.GetByID(ctx, "live"); got == nil {
		t.Error("expected live session to remain")
	}
}
