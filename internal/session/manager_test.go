package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func newTestManager() *Manager {
	return NewManager(NewMemoryStore(), testSecret, time.Hour)
}

func TestStartAndResolve(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	s, token, err := m.Start(ctx, Profile{UserID: "google-42", Email: "dr@example.com", Name: "Dr. Sari"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, s.CreatedAt.Add(time.Hour), s.ExpiresAt)

	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "dr@example.com", got.Email)
	assert.Equal(t, "Dr. Sari", got.Name)
}

func TestEndRevokesToken(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	_, token, err := m.Start(ctx, Profile{UserID: "u"})
	require.NoError(t, err)

	require.NoError(t, m.End(ctx, token))
	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveRejectsBadTokens(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	_, err := m.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Resolve(ctx, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewManager(m.Store, "a-completely-different-secret", time.Hour)
	_, forged, err := other.Start(ctx, Profile{UserID: "u"})
	require.NoError(t, err)
	_, err = m.Resolve(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ID: "x", Subject: "u"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Resolve(ctx, unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveExpiredToken(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	now := time.Now()
	m.Now = func() time.Time { return now }

	_, token, err := m.Start(ctx, Profile{UserID: "u"})
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestResolveUnknownSession(t *testing.T) {
	m := newTestManager()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        "missing",
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = m.Resolve(context.Background(), signed)
	assert.ErrorIs(t, err, ErrNotFound)
}
