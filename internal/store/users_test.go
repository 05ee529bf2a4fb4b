package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/joestump/storybooks/internal/store"
	"github.com/joestump/storybooks/internal/testutil"
)

func newUserStore(t *testing.T) *store.UserStore {
	t.Helper()
	db := testutil.NewTestDB(t)
	return store.NewUserStore(db)
}

func TestUpsert_CreatesUser(t *testing.T) {
	us := newUserStore(t)
	ctx := context.Background()

	u, err := us.Upsert(ctx, store.Profile{
		Provider:    "google",
		Subject:     "sub1",
		Email:       "alice@example.com",
		DisplayName: "Alice Smith",
		Image:       "https://example.com/alice.png",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated id")
	}
	if u.Image != "https://example.com/alice.png" {
		t.Errorf("image = %q", u.Image)
	}
	if u.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestUpsert_ReturningUserKeepsID(t *testing.T) {
	us := newUserStore(t)
	ctx := context.Background()

	first, err := us.Upsert(ctx, store.Profile{Provider: "google", Subject: "sub1", Email: "old@example.com", DisplayName: "Old"})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := us.Upsert(ctx, store.Profile{Provider: "google", Subject: "sub1", Email: "new@example.com", DisplayName: "New", Image: "img"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("id changed from %s to %s", first.ID, second.ID)
	}
	if second.Email != "new@example.com" || second.DisplayName != "New" || second.Image != "img" {
		t.Errorf("profile not refreshed: %+v", second)
	}
}

func TestUserStore_GetByID(t *testing.T) {
	us := newUserStore(t)
	ctx := context.Background()

	u, err := us.Upsert(ctx, store.Profile{Provider: "test", Subject: "sub1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := us.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != "a@example.com" {
		t.Errorf("email = %q", got.Email)
	}

	if _, err := us.GetByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserStore_GetByEmail(t *testing.T) {
	us := newUserStore(t)
	ctx := context.Background()

	u, err := us.Upsert(ctx, store.Profile{Provider: "test", Subject: "sub1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := us.GetByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("id = %s, want %s", got.ID, u.ID)
	}

	if _, err := us.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUser_Name(t *testing.T) {
	u := store.User{Email: "a@example.com"}
	if u.Name() != "a@example.com" {
		t.Errorf("Name() = %q, want email fallback", u.Name())
	}
	u.DisplayName = "Alice"
	if u.Name() != "Alice" {
		t.Errorf("Name() = %q, want display name", u.Name())
	}
}
