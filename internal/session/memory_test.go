package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	s := &Session{ID: "abc", UserID: "u1", ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	assert.ErrorIs(t, store.Save(ctx, &Session{ID: "old", ExpiresAt: now}), ErrExpired)

	require.NoError(t, store.Save(ctx, &Session{ID: "s", ExpiresAt: now.Add(time.Second)}))
	now = now.Add(2 * time.Second)

	_, err := store.Get(ctx, "s")
	assert.ErrorIs(t, err, ErrExpired)
	_, err = store.Get(ctx, "s")
	assert.ErrorIs(t, err, ErrNotFound)
}
