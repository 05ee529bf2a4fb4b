package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// BearerTokenMiddleware authenticates API requests by bearer token. Session
// cookies are ignored on these routes.
type BearerTokenMiddleware struct {
	tokens TokenStore
	users  UserLookup
	now    func() time.Time
}

func NewBearerTokenMiddleware(ts TokenStore, users UserLookup) *BearerTokenMiddleware {
	return &BearerTokenMiddleware{tokens: ts, users: users, now: time.Now}
}

// Authenticate injects the token owner's *store.User into the context using
// the same key as session auth. Missing, unknown, revoked or expired tokens
// get a 401 JSON body.
func (m *BearerTokenMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		plaintext, ok := bearerToken(r)
		if !ok {
			writeUnauthorized(w)
			return
		}

		rec, err := m.tokens.GetByHash(r.Context(), HashToken(plaintext))
		if err != nil || !rec.Active(m.now()) {
			writeUnauthorized(w)
			return
		}

		user, err := m.users.GetByID(r.Context(), rec.UserID)
		if err != nil {
			writeUnauthorized(w)
			return
		}

		// last_used_at is advisory; do not hold the request for it.
		go func(id string) {
			if err := m.tokens.UpdateLastUsed(context.Background(), id); err != nil {
				slog.Warn("update token last_used_at", "token_id", id, "error", err)
			}
		}(rec.ID)

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(h, "Bearer ")
	if !found {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "code": "UNAUTHORIZED"})
}
