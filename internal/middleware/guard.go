package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/findosh/contactdesk/internal/models"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

// Decision is the outcome of a route guard check
type Decision int

const (
	// DecisionPending means the session has not been restored yet
	DecisionPending Decision = iota
	DecisionAllow
	DecisionRedirect
)

func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionAllow:
		return "allow"
	case DecisionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Allow reports whether a protected view may be shown for state
func Allow(state models.SessionState) bool {
	return state.IsAuthenticated
}

// Decide is the route guard. Until the session is hydrated nothing is
// decided, so a persisted login is never bounced to the login page.
func Decide(hydrated bool, state models.SessionState) Decision {
	if !hydrated {
		return DecisionPending
	}
	if Allow(state) {
		return DecisionAllow
	}
	return DecisionRedirect
}

// SessionSource is the session state the guard reads
type SessionSource interface {
	Hydrated() bool
	State() models.SessionState
}

// Guard protects routes behind the session
type Guard struct {
	session   SessionSource
	loginPath string
	pending   http.Handler
}

// NewGuard creates the guard. pending renders the placeholder shown while
// the session is being restored; nil uses a plain text placeholder.
func NewGuard(session SessionSource, loginPath string, pending http.Handler) *Guard {
	if pending == nil {
		pending = http.HandlerFunc(plainPending)
	}
	return &Guard{session: session, loginPath: loginPath, pending: pending}
}

// RequireAuth ensures the visitor is authenticated
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := g.session.State()

		switch Decide(g.session.Hydrated(), state) {
		case DecisionPending:
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Cache-Control", "no-store")
			g.pending.ServeHTTP(w, r)
		case DecisionRedirect:
			// Redirect to login for HTML requests
			if wantsHTML(r) {
				http.Redirect(w, r, g.loginPath, http.StatusSeeOther)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Unauthorized"}`))
		default:
			ctx := context.WithValue(r.Context(), UserContextKey, state.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	})
}

// RedirectIfAuthenticated sends logged-in visitors to path instead of next
func (g *Guard) RedirectIfAuthenticated(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && Decide(g.session.Hydrated(), g.session.State()) == DecisionAllow {
			http.Redirect(w, r, path, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUser retrieves the user from the request context
func GetUser(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html")
}

func plainPending(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Loading..."))
}
