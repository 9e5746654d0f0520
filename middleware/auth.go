package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"medirecords/internal/session"
	"medirecords/pkg/apierror"
	"medirecords/pkg/logger"
)

type contextKey string

const identityKey contextKey = "identity"

// SessionCookie carries the session token for browser clients.
const SessionCookie = "session"

// Identity is the signed-in user attached to a request.
type Identity struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

type Decision int

const (
	Rejected Decision = iota
	Admitted
)

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// TokenFrom returns the session token from the cookie or the bearer header.
func TokenFrom(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Sessions resolves the request's token and attaches the Identity when it
// names a live session. It never rejects a request.
func Sessions(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFrom(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			s, err := manager.Resolve(r.Context(), token)
			switch {
			case err == nil:
				r = r.WithContext(WithIdentity(r.Context(), Identity{
					SessionID: s.ID,
					UserID:    s.UserID,
					Email:     s.Email,
					Name:      s.Name,
				}))
			case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired), errors.Is(err, session.ErrInvalidToken):
				logger.Sugar.Debugf("Ignoring session token: %v", err)
			default:
				logger.Sugar.Errorf("Session lookup failed: %v", err)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate admits a request that carries an established session.
func Authenticate(r *http.Request) Decision {
	if _, ok := IdentityFrom(r.Context()); ok {
		return Admitted
	}
	return Rejected
}

// RequireSession is the gate in front of every mutating route.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Authenticate(r) == Rejected {
			logger.Sugar.Infof("Unauthenticated %s %s rejected", r.Method, r.URL.Path)
			apierror.Write(w, apierror.New(apierror.Unauthenticated, "Authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
