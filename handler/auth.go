package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"medirecords/internal/session"
	"medirecords/middleware"
	"medirecords/pkg/apierror"
	"medirecords/pkg/logger"
)

const stateCookie = "oauth_state"

// UserInfo is the subset of the provider's userinfo response we keep.
// Google's v2 endpoint names the user "id", OpenID Connect names it "sub".
type UserInfo struct {
	Sub   string `json:"sub"`
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u UserInfo) userID() string {
	if u.Sub != "" {
		return u.Sub
	}
	return u.ID
}

// AuthHandler runs the OAuth2 authorization-code login and manages the
// resulting session cookie.
type AuthHandler struct {
	OAuth        *oauth2.Config
	UserInfoURL  string
	Sessions     *session.Manager
	CookieSecure bool
	// HTTPClient, when set, is used for the token exchange and userinfo calls.
	HTTPClient *http.Client
}

func NewAuthHandler(cfg *oauth2.Config, userInfoURL string, sessions *session.Manager, secure bool) *AuthHandler {
	return &AuthHandler{OAuth: cfg, UserInfoURL: userInfoURL, Sessions: sessions, CookieSecure: secure}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.OAuth.AuthCodeURL(state), http.StatusFound)
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || state.Value != r.URL.Query().Get("state") {
		logger.Sugar.Warnf("OAuth callback with mismatched state from %s", r.RemoteAddr)
		apierror.Write(w, apierror.New(apierror.Unauthenticated, "Invalid OAuth state"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth", MaxAge: -1})

	if oauthErr := r.URL.Query().Get("error"); oauthErr != "" {
		logger.Sugar.Infof("OAuth provider returned error: %s", oauthErr)
		apierror.Write(w, apierror.New(apierror.Unauthenticated, "Authentication failed"))
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		apierror.Write(w, apierror.New(apierror.ValidationFailed, "Missing authorization code"))
		return
	}

	ctx := r.Context()
	if h.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, h.HTTPClient)
	}

	token, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		logger.Sugar.Errorf("OAuth code exchange failed: %v", err)
		apierror.Write(w, apierror.New(apierror.Unauthenticated, "Authentication failed"))
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		logger.Sugar.Errorf("OAuth userinfo failed: %v", err)
		apierror.Write(w, apierror.New(apierror.Unauthenticated, "Authentication failed"))
		return
	}

	s, signed, err := h.Sessions.Start(ctx, session.Profile{UserID: info.userID(), Email: info.Email, Name: info.Name})
	if err != nil {
		logger.Sugar.Errorf("Failed to start session: %v", err)
		apierror.Write(w, apierror.Wrap(apierror.StoreError, apierror.GenericMessage, err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    signed,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	logger.Sugar.Infof("User %s signed in", s.UserID)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	resp, err := h.OAuth.Client(ctx, token).Get(h.UserInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: unexpected status %d", resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("userinfo: decode: %w", err)
	}
	if info.userID() == "" {
		return nil, errors.New("userinfo: no user id in response")
	}
	return &info, nil
}

// Logout ends the caller's session, if any, and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.TokenFrom(r); token != "" {
		if err := h.Sessions.End(r.Context(), token); err != nil && !errors.Is(err, session.ErrInvalidToken) && !errors.Is(err, session.ErrExpired) {
			logger.Sugar.Errorf("Failed to end session: %v", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
	})
	apierror.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me reports the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierror.Write(w, apierror.New(apierror.Unauthenticated, "Authentication required"))
		return
	}
	apierror.WriteJSON(w, http.StatusOK, id)
}
