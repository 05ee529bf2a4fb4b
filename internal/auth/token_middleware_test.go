package auth_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joestump/storybooks/internal/auth"
	"github.com/joestump/storybooks/internal/store"
)

// mockTokenStore is a test double implementing auth.TokenStore.
type mockTokenStore struct {
	getByHash func(ctx context.Context, hash string) (*auth.TokenRecord, error)
}

func (m *mockTokenStore) Create(ctx context.Context, userID, name, tokenHash string, expiresAt *time.Time) (*auth.TokenRecord, error) {
	return nil, nil
}

func (m *mockTokenStore) GetByHash(ctx context.Context, hash string) (*auth.TokenRecord, error) {
	return m.getByHash(ctx, hash)
}

func (m *mockTokenStore) ListByUser(ctx context.Context, userID string) ([]*auth.TokenRecord, error) {
	return nil, nil
}

func (m *mockTokenStore) Revoke(ctx context.Context, id, userID string) error { return nil }

func (m *mockTokenStore) UpdateLastUsed(ctx context.Context, id string) error { return nil }

// fakeUsers is an in-memory auth.UserLookup.
type fakeUsers map[string]*store.User

func (f fakeUsers) GetByID(_ context.Context, id string) (*store.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

// userEcho writes the id of the context user, or "anonymous".
func userEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.UserIDFromContext(r.Context())
		if id == "" {
			id = "anonymous"
		}
		_, _ = w.Write([]byte(id))
	})
}

func tokenStoreFor(hash string, rec auth.TokenRecord) *mockTokenStore {
	return &mockTokenStore{
		getByHash: func(_ context.Context, h string) (*auth.TokenRecord, error) {
			if h == hash {
				return &rec, nil
			}
			return nil, store.ErrNotFound
		},
	}
}

func serveBearer(t *testing.T, mw *auth.BearerTokenMiddleware, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stories", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	mw.Authenticate(userEcho()).ServeHTTP(rec, req)
	return rec
}

func TestBearerTokenMiddleware_ValidToken(t *testing.T) {
	plaintext, hash, err := auth.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	ts := tokenStoreFor(hash, auth.TokenRecord{ID: "token-1", UserID: "user-1", TokenHash: hash})
	users := fakeUsers{"user-1": {ID: "user-1", Email: "test@example.com"}}

	rec := serveBearer(t, auth.NewBearerTokenMiddleware(ts, users), "Bearer "+plaintext)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "user-1" {
		t.Errorf("context user = %q, want user-1", rec.Body.String())
	}
}

func TestBearerTokenMiddleware_Rejections(t *testing.T) {
	plaintext, hash, _ := auth.GenerateToken()
	users := fakeUsers{"user-1": {ID: "user-1"}}
	now := time.Now()

	tests := []struct {
		name   string
		rec    auth.TokenRecord
		header string
	}{
		{"missing header", auth.TokenRecord{UserID: "user-1"}, ""},
		{"wrong scheme", auth.TokenRecord{UserID: "user-1"}, "Basic " + plaintext},
		{"empty bearer", auth.TokenRecord{UserID: "user-1"}, "Bearer "},
		{"unknown token", auth.TokenRecord{UserID: "user-1"}, "Bearer st_nope"},
		{"revoked", auth.TokenRecord{UserID: "user-1", RevokedAt: sql.NullTime{Time: now, Valid: true}}, "Bearer " + plaintext},
		{"expired", auth.TokenRecord{UserID: "user-1", ExpiresAt: sql.NullTime{Time: now.Add(-time.Hour), Valid: true}}, "Bearer " + plaintext},
		{"owner deleted", auth.TokenRecord{UserID: "ghost"}, "Bearer " + plaintext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveBearer(t, auth.NewBearerTokenMiddleware(tokenStoreFor(hash, tt.rec), users), tt.header)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type = %q", ct)
			}
		})
	}
}
