package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Profile is what an identity provider tells us about a user.
type Profile struct {
	UserID string
	Email  string
	Name   string
}

// Manager issues tokens for new sessions and resolves them back.
type Manager struct {
	Store  Store
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{Store: store, Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

// Start stores a new session for p and returns it with its signed token.
func (m *Manager) Start(ctx context.Context, p Profile) (*Session, string, error) {
	now := m.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    p.UserID,
		Email:     p.Email,
		Name:      p.Name,
		CreatedAt: now,
		ExpiresAt: now.Add(m.TTL),
	}
	if err := m.Store.Save(ctx, s); err != nil {
		return nil, "", fmt.Errorf("session: save: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        s.ID,
		Subject:   s.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	})
	signed, err := token.SignedString(m.Secret)
	if err != nil {
		return nil, "", fmt.Errorf("session: sign: %w", err)
	}
	return s, signed, nil
}

// Resolve verifies tokenString and loads the session it names.
func (m *Manager) Resolve(ctx context.Context, tokenString string) (*Session, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}

	s, err := m.Store.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if s.UserID != claims.Subject {
		return nil, ErrInvalidToken
	}
	return s, nil
}

// End deletes the session named by tokenString. Unknown sessions are not an error.
func (m *Manager) End(ctx context.Context, tokenString string) error {
	claims, err := m.parse(tokenString)
	if err != nil {
		return err
	}
	return m.Store.Delete(ctx, claims.ID)
}

func (m *Manager) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.Secret, nil
	}, jwt.WithTimeFunc(m.Now))

	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpired
	}
	if err != nil || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
