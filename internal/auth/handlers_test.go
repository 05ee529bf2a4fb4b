package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joestump/storybooks/internal/auth"
	"github.com/joestump/storybooks/internal/store"
)

type fakeProvider struct {
	profile store.Profile
	err     error
	gotCode string
}

func (f *fakeProvider) AuthCodeURL(state, challenge string) string {
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state) + "&code_challenge=" + challenge
}

func (f *fakeProvider) Exchange(_ context.Context, code, _ string) (store.Profile, error) {
	f.gotCode = code
	return f.profile, f.err
}

type recordingUpserter struct {
	got []store.Profile
	err error
}

func (r *recordingUpserter) Upsert(_ context.Context, p store.Profile) (*store.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.got = append(r.got, p)
	return &store.User{ID: "user-" + p.Subject, Email: p.Email}, nil
}

func cookieValue(t *testing.T, rec *httptest.ResponseRecorder, name string) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	t.Fatalf("cookie %s not set", name)
	return ""
}

func TestLogin_SetsStateAndRedirects(t *testing.T) {
	h := auth.NewHandlers(&fakeProvider{}, memSessions(), &recordingUpserter{}, true)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login?redirect=/stories/add", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "idp.example.com", loc.Host)

	state := cookieValue(t, rec, "__auth_state")
	assert.Equal(t, state, loc.Query().Get("state"))
	assert.NotEmpty(t, cookieValue(t, rec, "__auth_pkce"))
	assert.Equal(t, "/stories/add", cookieValue(t, rec, "__auth_redirect"))
}

func TestLogin_RejectsOffsiteRedirect(t *testing.T) {
	h := auth.NewHandlers(&fakeProvider{}, memSessions(), &recordingUpserter{}, true)

	for _, target := range []string{"https://evil.example.com", "//evil.example.com", "javascript:alert(1)"} {
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login?redirect="+url.QueryEscape(target), nil))
		assert.Equal(t, "/dashboard", cookieValue(t, rec, "__auth_redirect"), target)
	}
}

func callbackRequest(state, cookieState string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state="+state, nil)
	req.AddCookie(&http.Cookie{Name: "__auth_state", Value: cookieState})
	req.AddCookie(&http.Cookie{Name: "__auth_pkce", Value: "verifier"})
	req.AddCookie(&http.Cookie{Name: "__auth_redirect", Value: "/stories"})
	return req
}

func TestCallback_StateMismatch(t *testing.T) {
	sm := memSessions()
	h := auth.NewHandlers(&fakeProvider{}, sm, &recordingUpserter{}, true)

	rec := httptest.NewRecorder()
	sm.LoadAndSave(http.HandlerFunc(h.Callback)).ServeHTTP(rec, callbackRequest("forged", "expected"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallback_CreatesSession(t *testing.T) {
	sm := memSessions()
	provider := &fakeProvider{profile: store.Profile{
		Provider: "https://idp.example.com", Subject: "42", Email: "a@example.com", DisplayName: "A", Image: "https://img",
	}}
	users := &recordingUpserter{}
	h := auth.NewHandlers(provider, sm, users, true)

	var sessionUser string
	probe := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Callback(w, r)
		sessionUser = sm.GetString(r.Context(), auth.SessionUserIDKey)
	})

	rec := httptest.NewRecorder()
	sm.LoadAndSave(probe).ServeHTTP(rec, callbackRequest("s1", "s1"))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/stories", rec.Header().Get("Location"))
	assert.Equal(t, "abc", provider.gotCode)
	require.Len(t, users.got, 1)
	assert.Equal(t, "https://img", users.got[0].Image)
	assert.Equal(t, "user-42", sessionUser)
}

func TestCallback_ExchangeFailure(t *testing.T) {
	sm := memSessions()
	h := auth.NewHandlers(&fakeProvider{err: errors.New("bad code")}, sm, &recordingUpserter{}, true)

	rec := httptest.NewRecorder()
	sm.LoadAndSave(http.HandlerFunc(h.Callback)).ServeHTTP(rec, callbackRequest("s1", "s1"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallback_UpsertFailure(t *testing.T) {
	sm := memSessions()
	h := auth.NewHandlers(&fakeProvider{profile: store.Profile{Subject: "1"}}, sm, &recordingUpserter{err: errors.New("db down")}, true)

	rec := httptest.NewRecorder()
	sm.LoadAndSave(http.HandlerFunc(h.Callback)).ServeHTTP(rec, callbackRequest("s1", "s1"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogout(t *testing.T) {
	sm := memSessions()
	h := auth.NewHandlers(&fakeProvider{}, sm, &recordingUpserter{}, true)

	rec := httptest.NewRecorder()
	sm.LoadAndSave(http.HandlerFunc(h.Logout)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}
