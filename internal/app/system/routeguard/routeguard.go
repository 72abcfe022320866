// Package routeguard is the first authorization layer: it keeps anonymous
// callers out of role pages and keeps signed-in users off the login and
// register pages. Role checks for specific route groups happen later via
// auth.SessionManager.RequireRole.
package routeguard

import (
	"net/http"
	"strings"

	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/dalemusser/playsafe/internal/domain/models"
)

// Decision is the outcome of classifying one request.
type Decision int

const (
	Pass Decision = iota
	RedirectLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	}
	return "pass"
}

// Protected lists the path prefixes that need a verified session.
var Protected = []string{
	"/dashboard",
	"/notifications",
	"/admin",
	"/citizen",
	"/maintenance",
	"/report",
	"/status",
	"/playground",
}

// AuthPaths are matched exactly; a signed-in user is sent home from them.
var AuthPaths = []string{"/login", "/register"}

// skipped prefixes never reach Decide.
var skipped = []string{"/static", "/api", "/health"}

// under reports whether path is prefix itself or below it. "/playgrounds"
// is not under "/playground".
func under(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func underAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if under(path, p) {
			return true
		}
	}
	return false
}

func isAuthPath(path string) bool {
	for _, p := range AuthPaths {
		if path == p {
			return true
		}
	}
	return false
}

// Decide classifies a request path for the given session user (nil when
// anonymous).
func Decide(path string, user *auth.SessionUser) Decision {
	signedIn := user != nil
	switch {
	case !signedIn && underAny(path, Protected):
		return RedirectLogin
	case signedIn && isAuthPath(path):
		return RedirectHome
	}
	return Pass
}

// Home is where RedirectHome sends a user.
func Home(user *auth.SessionUser) string {
	if user == nil {
		return "/"
	}
	return models.RoleHome(strings.ToLower(user.Role))
}

// Guard applies Decide to every request except static assets, the API and
// health checks. It must run after LoadSessionUser.
func Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if underAny(path, skipped) {
			next.ServeHTTP(w, r)
			return
		}

		user, _ := auth.CurrentUser(r)
		switch Decide(path, user) {
		case RedirectLogin:
			http.Redirect(w, r, auth.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		case RedirectHome:
			http.Redirect(w, r, Home(user), http.StatusSeeOther)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
