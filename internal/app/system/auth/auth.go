package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey    = "is_authenticated"
	userIDKey    = "user_id"
	sessionIDKey = "session_id"
)

// SessionUser is the identity injected into r.Context(). It is rebuilt from
// the user record on every request, never trusted from the cookie.
type SessionUser struct {
	ID        string
	Name      string
	Email     string
	Role      string
	SessionID string
}

// IsAdmin reports whether the user holds the admin role.
func (u *SessionUser) IsAdmin() bool { return strings.EqualFold(u.Role, models.RoleAdmin) }

// UserFetcher loads the current state of a user. It returns nil when the
// user no longer exists, is disabled, or cannot be loaded.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionVerifier confirms a server-side session record is still live.
type SessionVerifier interface {
	Active(ctx context.Context, sessionID, userID string) (bool, error)
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects u into the request context the way LoadSessionUser does.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the signed cookie store and resolves the caller's
// identity from either the cookie or a bearer token.
type SessionManager struct {
	store    *sessions.CookieStore
	name     string
	maxAge   time.Duration
	fetcher  UserFetcher
	verifier SessionVerifier
	tokens   *TokenIssuer
	log      *zap.Logger
}

// NewSessionManager builds a cookie store signed with sessionKey. The cookie
// carries its own timestamp, so securecookie rejects it after maxAge even if
// the browser keeps it.
//
// In production (secure=true) cookies are Secure + SameSite=Lax. In local dev
// over http://localhost, use secure=false so cookies are accepted.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "playsafe-session"
	}
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(int(maxAge.Seconds()))

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, maxAge: maxAge, log: logger}, nil
}

// SetUserFetcher wires the user lookup used on every request.
func (m *SessionManager) SetUserFetcher(f UserFetcher) { m.fetcher = f }

// SetSessionVerifier wires the server-side session check.
func (m *SessionManager) SetSessionVerifier(v SessionVerifier) { m.verifier = v }

// SetTokenIssuer enables bearer-token identity.
func (m *SessionManager) SetTokenIssuer(t *TokenIssuer) { m.tokens = t }

// Tokens returns the configured issuer, or nil.
func (m *SessionManager) Tokens() *TokenIssuer { return m.tokens }

// Store exposes the underlying cookie store.
func (m *SessionManager) Store() *sessions.CookieStore { return m.store }

// Name is the cookie name.
func (m *SessionManager) Name() string { return m.name }

// MaxAge is the session lifetime.
func (m *SessionManager) MaxAge() time.Duration { return m.maxAge }

// GetSession returns the session, replacing an undecodable cookie (bad
// signature, expired timestamp, rotated key) with a fresh empty session.
func (m *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			m.log.Debug("discarding undecodable session cookie", zap.Error(err))
			fresh := sessions.NewSession(m.store, m.name)
			opts := *m.store.Options
			fresh.Options = &opts
			fresh.IsNew = true
			return fresh, nil
		}
		return sess, err
	}
	return sess, nil
}

// SignIn writes the signed cookie binding this browser to sessionID.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID, sessionID string) error {
	sess, err := m.GetSession(r)
	if err != nil {
		return err
	}
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = userID
	sess.Values[sessionIDKey] = sessionID
	return sess.Save(r, w)
}

// SignOut expires the cookie and returns the session id it carried, if any.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, err := m.GetSession(r)
	if err != nil {
		return "", err
	}
	sid, _ := sess.Values[sessionIDKey].(string)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return sid, sess.Save(r, w)
}

// LoadSessionUser resolves the caller and injects the user into context.
// A bearer token takes precedence over the cookie. Any failure leaves the
// request anonymous; RequireSignedIn decides what to do about that.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := m.resolve(r); u != nil {
			r = withUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

func (m *SessionManager) resolve(r *http.Request) *SessionUser {
	if m.fetcher == nil {
		return nil
	}
	ctx := r.Context()

	if tok := bearerToken(r); tok != "" {
		if m.tokens == nil {
			return nil
		}
		userID, sessionID, err := m.tokens.Parse(tok)
		if err != nil {
			m.log.Debug("rejecting bearer token", zap.Error(err))
			return nil
		}
		return m.liveUser(ctx, userID, sessionID)
	}

	sess, err := m.GetSession(r)
	if err != nil {
		return nil
	}
	if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
		return nil
	}
	userID, _ := sess.Values[userIDKey].(string)
	sessionID, _ := sess.Values[sessionIDKey].(string)
	if userID == "" || sessionID == "" {
		return nil
	}
	return m.liveUser(ctx, userID, sessionID)
}

// liveUser checks the session record behind a cookie or bearer token and
// loads the user it belongs to.
func (m *SessionManager) liveUser(ctx context.Context, userID, sessionID string) *SessionUser {
	if m.verifier != nil {
		ok, err := m.verifier.Active(ctx, sessionID, userID)
		if err != nil {
			m.log.Warn("session verification failed", zap.String("session_id", sessionID), zap.Error(err))
			return nil
		}
		if !ok {
			return nil
		}
	}
	u := m.fetcher.FetchUser(ctx, userID)
	if u != nil {
		u.SessionID = sessionID
	}
	return u
}

/*─────────────────────────────────────────────────────────────────────────────*
| Guards                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTML: 303 redirect to /login?redirect=...
//   - API:  401 with a JSON error body.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		unauthorized(w, r)
	})
}

// RequireRole ensures there is a user with one of the allowed roles.
// A signed-in user with the wrong role is sent to their own home page
// (HTML) or gets 403 (API).
func (m *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				unauthorized(w, r)
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				if wantsHTML(r) {
					http.Redirect(w, r, models.RoleHome(strings.ToLower(u.Role)), http.StatusSeeOther)
					return
				}
				httpjson.Error(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}
	httpjson.Error(w, http.StatusUnauthorized, "unauthorized")
}

// LoginURL is the login page carrying the original destination.
func LoginURL(dest string) string {
	return "/login?redirect=" + url.QueryEscape(dest)
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
