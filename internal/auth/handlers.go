package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/joestump/storybooks/internal/store"
)

const (
	cookieState        = "__auth_state"
	cookieCodeVerifier = "__auth_pkce"
	cookieRedirect     = "__auth_redirect"

	defaultRedirect = "/dashboard"
)

// UserUpserter records a login.
type UserUpserter interface {
	Upsert(ctx context.Context, p store.Profile) (*store.User, error)
}

// Handlers provides HTTP handlers for the OIDC authentication flow.
type Handlers struct {
	provider Authenticator
	sessions *scs.SessionManager
	users    UserUpserter
	secure   bool
}

// NewHandlers creates a new Handlers with the given dependencies.
func NewHandlers(p Authenticator, sm *scs.SessionManager, users UserUpserter, secure bool) *Handlers {
	return &Handlers{provider: p, sessions: sm, users: users, secure: secure}
}

// Login initiates the OIDC authorization code flow with PKCE.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := GenerateState()
	if err != nil {
		slog.ErrorContext(r.Context(), "generate oauth state", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	verifier, challenge, err := GeneratePKCE()
	if err != nil {
		slog.ErrorContext(r.Context(), "generate pkce", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.setPreAuthCookie(w, cookieState, state)
	h.setPreAuthCookie(w, cookieCodeVerifier, verifier)
	h.setPreAuthCookie(w, cookieRedirect, safeRedirect(r.URL.Query().Get("redirect")))

	http.Redirect(w, r, h.provider.AuthCodeURL(state, challenge), http.StatusFound)
}

// Callback handles the OIDC provider redirect after authentication.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stateCookie, err := r.Cookie(cookieState)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	verifierCookie, err := r.Cookie(cookieCodeVerifier)
	if err != nil {
		http.Error(w, "missing code verifier", http.StatusBadRequest)
		return
	}

	profile, err := h.provider.Exchange(ctx, r.URL.Query().Get("code"), verifierCookie.Value)
	if err != nil {
		slog.WarnContext(ctx, "oidc exchange failed", "error", err)
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	user, err := h.users.Upsert(ctx, profile)
	if err != nil {
		slog.ErrorContext(ctx, "upsert user", "subject", profile.Subject, "error", err)
		http.Error(w, "user record error", http.StatusInternalServerError)
		return
	}

	// New token on privilege change.
	if err := h.sessions.RenewToken(ctx); err != nil {
		slog.ErrorContext(ctx, "renew session token", "error", err)
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	h.sessions.Put(ctx, SessionUserIDKey, user.ID)
	slog.InfoContext(ctx, "user logged in", "user_id", user.ID)

	redirect := defaultRedirect
	if c, err := r.Cookie(cookieRedirect); err == nil {
		redirect = safeRedirect(c.Value)
	}
	clearCookie(w, cookieState)
	clearCookie(w, cookieCodeVerifier)
	clearCookie(w, cookieRedirect)

	http.Redirect(w, r, redirect, http.StatusFound)
}

// Logout destroys the session and returns to the landing page.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "destroy session", "error", err)
		http.Error(w, "logout error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// safeRedirect only allows local absolute paths.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return defaultRedirect
	}
	return target
}

func (h *Handlers) setPreAuthCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   300, // 5 minutes
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
}
