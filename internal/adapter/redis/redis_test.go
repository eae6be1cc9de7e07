package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"opspanel/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	exp := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	in := &domain.Session{
		ID:          "ignored-in-payload",
		Username:    "operator",
		SealedToken: "sealed",
		CreatedAt:   "c",
		ExpiresAt:   exp,
	}
	raw, err := encode(in)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "ignored-in-payload")
	assert.Contains(t, string(raw), `"permissions":[]`)

	out, err := decode("sess-1", raw)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", out.ID)
	assert.Equal(t, "operator", out.Username)
	assert.True(t, out.ExpiresAt.Equal(exp))

	_, err = decode("x", []byte("not json"))
	assert.Error(t, err)
}

func TestKeyPrefix(t *testing.T) {
	assert.Equal(t, "opspanel:session:abc", NewSessionRepo(nil, " ").key("abc"))
	assert.Equal(t, "custom:abc", NewSessionRepo(nil, "custom").key("abc"))
}

// Requires a reachable server: REDIS_ADDR=localhost:6379 go test ./...
func TestSessionRepo_Live(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := Dial(ctx, addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	repo := NewSessionRepo(client, "opspanel-test:"+uuid.NewString())
	id := uuid.NewString()

	require.NoError(t, repo.Save(ctx, &domain.Session{
		ID: id, Username: "operator", Permissions: []string{"yal"}, ExpiresAt: time.Now().Add(time.Minute),
	}))

	ttl, err := client.TTL(ctx, repo.key(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"yal"}, got.Permissions)

	require.NoError(t, repo.Delete(ctx, id))
	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Saving an already expired session removes it.
	require.NoError(t, repo.Save(ctx, &domain.Session{ID: id, ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, repo.Save(ctx, &domain.Session{ID: id, ExpiresAt: time.Now().Add(-time.Minute)}))
	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}
