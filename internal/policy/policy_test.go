package policy_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joestump/storybooks/internal/policy"
	"github.com/joestump/storybooks/internal/store"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func story(id, owner, status string, age time.Duration) *store.Story {
	return &store.Story{
		ID:        id,
		UserID:    owner,
		Title:     "title " + id,
		Status:    status,
		CreatedAt: base.Add(-age),
		UpdatedAt: base.Add(-age),
	}
}

func TestPrivateStoryHiddenFromNonOwners(t *testing.T) {
	s := story("s1", "u1", store.StatusPrivate, 0)
	for _, requester := range []string{"u2", "", "U1", "u1 "} {
		t.Run(fmt.Sprintf("requester=%q", requester), func(t *testing.T) {
			assert.False(t, policy.CanView(s, requester))
			assert.False(t, policy.CanMutate(s, requester))
		})
	}
}

func TestOwnerHasFullAccessRegardlessOfStatus(t *testing.T) {
	for _, status := range []string{store.StatusPublic, store.StatusPrivate} {
		s := story("s1", "u1", status, 0)
		assert.True(t, policy.CanView(s, "u1"), status)
		assert.True(t, policy.CanMutate(s, "u1"), status)
	}
}

func TestPublicStoryViewableButNotMutableByOthers(t *testing.T) {
	s := story("s1", "u1", store.StatusPublic, 0)
	assert.True(t, policy.CanView(s, "u2"))
	assert.True(t, policy.CanView(s, ""))
	assert.False(t, policy.CanMutate(s, "u2"))
	assert.False(t, policy.CanMutate(s, ""))
}

func TestNilStory(t *testing.T) {
	assert.False(t, policy.CanView(nil, "u1"))
	assert.False(t, policy.CanMutate(nil, "u1"))
}

func TestOwnerlessStoryNeverMatchesAnonymous(t *testing.T) {
	s := story("s1", "", store.StatusPrivate, 0)
	assert.False(t, policy.CanView(s, ""))
	assert.False(t, policy.CanMutate(s, ""))
}

func TestVisibleCollection(t *testing.T) {
	in := []*store.Story{
		story("old", "u1", store.StatusPublic, 3*time.Hour),
		story("secret", "u1", store.StatusPrivate, time.Hour),
		story("new", "u2", store.StatusPublic, 0),
		story("mid", "u2", store.StatusPublic, 2*time.Hour),
		story("hidden", "u2", store.StatusPrivate, 0),
	}

	got := policy.VisibleCollection(in)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(got))
	for _, s := range got {
		assert.Equal(t, store.StatusPublic, s.Status)
	}
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].CreatedAt.After(got[i-1].CreatedAt), "story %s created after its predecessor", got[i].ID)
	}
	// Input is untouched.
	assert.Equal(t, "old", in[0].ID)
}

func TestVisibleCollection_TiesBrokenByID(t *testing.T) {
	in := []*store.Story{
		story("a", "u1", store.StatusPublic, 0),
		story("c", "u1", store.StatusPublic, 0),
		story("b", "u1", store.StatusPublic, 0),
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids(policy.VisibleCollection(in)))
}

func TestVisibleCollection_WithOwners(t *testing.T) {
	in := []*store.StoryWithOwner{
		{Story: *story("p", "u1", store.StatusPublic, 0), Owner: store.User{ID: "u1"}},
		{Story: *story("q", "u1", store.StatusPrivate, 0), Owner: store.User{ID: "u1"}},
	}
	got := policy.VisibleCollection(in)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].Owner.ID)
}

func TestVisibleCollection_Empty(t *testing.T) {
	assert.Empty(t, policy.VisibleCollection([]*store.Story(nil)))
}

func TestOwnedCollection(t *testing.T) {
	in := []*store.Story{
		story("pub", "u1", store.StatusPublic, 2*time.Hour),
		story("priv", "u1", store.StatusPrivate, time.Hour),
		story("other", "u2", store.StatusPublic, 0),
	}

	t.Run("owner sees everything they own", func(t *testing.T) {
		assert.Equal(t, []string{"priv", "pub"}, ids(policy.OwnedCollection(in, "u1", "u1")))
	})
	t.Run("others see only public", func(t *testing.T) {
		assert.Equal(t, []string{"pub"}, ids(policy.OwnedCollection(in, "u1", "u2")))
	})
	t.Run("anonymous sees only public", func(t *testing.T) {
		assert.Equal(t, []string{"pub"}, ids(policy.OwnedCollection(in, "u1", "")))
	})
	t.Run("unknown owner is empty", func(t *testing.T) {
		assert.Empty(t, policy.OwnedCollection(in, "u3", "u3"))
	})
}

func TestAuthorize(t *testing.T) {
	pub := story("s1", "u1", store.StatusPublic, 0)
	priv := story("s2", "u1", store.StatusPrivate, 0)
	boom := errors.New("connection reset")

	tests := []struct {
		name      string
		story     *store.Story
		err       error
		requester string
		action    policy.Action
		want      policy.Decision
	}{
		{"view public as stranger", pub, nil, "u2", policy.ActionView, policy.Allowed},
		{"view private as stranger", priv, nil, "u2", policy.ActionView, policy.Denied},
		{"view private as owner", priv, nil, "u1", policy.ActionView, policy.Allowed},
		{"edit public as stranger", pub, nil, "u2", policy.ActionEdit, policy.Denied},
		{"update as owner", pub, nil, "u1", policy.ActionUpdate, policy.Allowed},
		{"delete as stranger", priv, nil, "u2", policy.ActionDelete, policy.Denied},
		{"delete as owner", priv, nil, "u1", policy.ActionDelete, policy.Allowed},
		{"not found", nil, store.ErrNotFound, "u1", policy.ActionView, policy.NotFound},
		{"wrapped not found", nil, fmt.Errorf("lookup: %w", store.ErrNotFound), "u1", policy.ActionEdit, policy.NotFound},
		{"nil story without error", nil, nil, "u1", policy.ActionDelete, policy.NotFound},
		{"storage failure", nil, boom, "u1", policy.ActionView, policy.Failed},
		// A failed lookup is never turned into Allowed even if a stale record is passed.
		{"failure with stale record", pub, boom, "u1", policy.ActionUpdate, policy.Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Authorize(tt.story, tt.err, tt.requester, tt.action))
		})
	}
}

// Owner u1 publishes a story; u2 can read it but an edit attempt is declined
// and leaves it unchanged.
func TestScenario_NonOwnerEditDeclined(t *testing.T) {
	s := story("s1", "u1", store.StatusPublic, 0)
	s.Title = "T"

	assert.Equal(t, policy.Allowed, policy.Authorize(s, nil, "u2", policy.ActionView))
	assert.Equal(t, policy.Denied, policy.Authorize(s, nil, "u2", policy.ActionUpdate))
	assert.Equal(t, "T", s.Title)
}

// Owner u1 makes their story private; only u1 can still see it.
func TestScenario_OwnerMakesStoryPrivate(t *testing.T) {
	s := story("s1", "u1", store.StatusPublic, 0)
	require.Equal(t, policy.Allowed, policy.Authorize(s, nil, "u1", policy.ActionUpdate))

	s.Status = store.StatusPrivate

	assert.False(t, policy.CanView(s, "u2"))
	assert.True(t, policy.CanView(s, "u1"))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "allowed", policy.Allowed.String())
	assert.Equal(t, "denied", policy.Denied.String())
	assert.Equal(t, "not_found", policy.NotFound.String())
	assert.Equal(t, "failed", policy.Failed.String())
	assert.Equal(t, "unknown", policy.Decision(42).String())
}

func ids[S policy.Subject](stories []S) []string {
	out := make([]string, 0, len(stories))
	for _, s := range stories {
		out = append(out, s.Record().ID)
	}
	return out
}
