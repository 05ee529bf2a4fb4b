package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// StoryStoreIface exposes all story data operations. Handlers never query the
// DB directly; every read and write goes through this interface.
type StoryStoreIface interface {
	Create(ctx context.Context, ownerID string, in StoryInput) (*Story, error)
	GetByID(ctx context.Context, id string) (*Story, error)
	GetWithOwner(ctx context.Context, id string) (*StoryWithOwner, error)
	ListPublic(ctx context.Context) ([]*StoryWithOwner, error)
	ListPublicPage(ctx context.Context, after *PageCursor, limit int) ([]*StoryWithOwner, error)
	ListByOwner(ctx context.Context, ownerID string, includePrivate bool) ([]*StoryWithOwner, error)
	Update(ctx context.Context, id string, in StoryInput) (*Story, error)
	Delete(ctx context.Context, id string) error
}

var _ StoryStoreIface = (*StoryStore)(nil)
