package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joestump/storybooks/internal/api"
	"github.com/joestump/storybooks/internal/auth"
	"github.com/joestump/storybooks/internal/store"
	"github.com/joestump/storybooks/internal/testutil"
)

// testEnv holds all stores and helpers needed for API integration tests.
type testEnv struct {
	Router     http.Handler
	StoryStore *store.StoryStore
	UserStore  *store.UserStore
	TokenStore *auth.SQLTokenStore
}

// newTestEnv creates an in-memory SQLite test database, runs migrations,
// and wires up the full API router with real stores.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)

	ss := store.NewStoryStore(db)
	us := store.NewUserStore(db)
	ts := auth.NewSQLTokenStore(db)

	router := api.NewAPIRouter(api.Deps{
		BearerAuth: auth.NewBearerTokenMiddleware(ts, us),
		StoryStore: ss,
	})
	return &testEnv{Router: router, StoryStore: ss, UserStore: us, TokenStore: ts}
}

// seedUser creates a user and returns the user record.
func seedUser(t *testing.T, env *testEnv, name string) *store.User {
	t.Helper()
	u, err := env.UserStore.Upsert(context.Background(), store.Profile{
		Provider:    "test",
		Subject:     "sub-" + name,
		Email:       name + "@example.com",
		DisplayName: name,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// seedToken creates a real API token for a user and returns the plaintext Bearer value.
func seedToken(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	plaintext, _, err := auth.IssueToken(context.Background(), env.TokenStore, userID, "test-token", 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return plaintext
}

func seedStory(t *testing.T, env *testEnv, ownerID, title, status string) *store.Story {
	t.Helper()
	st, err := env.StoryStore.Create(context.Background(), ownerID, store.StoryInput{Title: title, Body: "body", Status: status})
	if err != nil {
		t.Fatalf("seed story: %v", err)
	}
	return st
}

// do sends a request through the router with the given bearer token.
func do(t *testing.T, env *testEnv, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	return rec
}
