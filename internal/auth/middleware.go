package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/joestump/storybooks/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// UserLookup resolves the user id stored in a session.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*store.User, error)
}

// Middleware resolves the session identity once per request and puts the
// *store.User on the request context. Nothing downstream reads the session
// directly.
type Middleware struct {
	sessions *scs.SessionManager
	users    UserLookup
}

// NewMiddleware creates a new auth Middleware.
func NewMiddleware(sm *scs.SessionManager, users UserLookup) *Middleware {
	return &Middleware{sessions: sm, users: users}
}

// RequireAuth redirects to the landing page if no valid session exists. The
// wrapped handler never runs for anonymous requests.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.resolve(r)
		if user == nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireGuest sends logged-in users to their dashboard.
func (m *Middleware) RequireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.resolve(r) != nil {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OptionalUser loads the user when a session exists and continues either way.
func (m *Middleware) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := m.resolve(r); user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// resolve returns the session's user, or nil. A session that points at a
// user who no longer exists is destroyed.
func (m *Middleware) resolve(r *http.Request) *store.User {
	ctx := r.Context()
	userID := m.sessions.GetString(ctx, SessionUserIDKey)
	if userID == "" {
		return nil
	}
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "session user lookup failed", "user_id", userID, "error", err)
		_ = m.sessions.Destroy(ctx)
		return nil
	}
	return user
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *store.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// UserFromContext retrieves the authenticated user from the context.
func UserFromContext(ctx context.Context) *store.User {
	u, _ := ctx.Value(UserContextKey).(*store.User)
	return u
}

// UserIDFromContext returns the authenticated user's id, or "" when the
// request is anonymous.
func UserIDFromContext(ctx context.Context) string {
	if u := UserFromContext(ctx); u != nil {
		return u.ID
	}
	return ""
}
