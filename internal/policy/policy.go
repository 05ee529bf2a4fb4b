// Package policy decides who may see and change a story. Every function here
// is pure: no I/O, no clock, no globals. Handlers look the story up, pass the
// result in and act on the Decision.
package policy

import (
	"errors"
	"slices"

	"github.com/joestump/storybooks/internal/store"
)

// CanView reports whether requesterID may read s. Public stories are readable
// by everyone, including anonymous requesters (empty requesterID). Private
// stories are readable only by their owner.
func CanView(s *store.Story, requesterID string) bool {
	if s == nil {
		return false
	}
	if s.Status == store.StatusPublic {
		return true
	}
	return isOwner(s, requesterID)
}

// CanMutate reports whether requesterID may edit, update or delete s. Only the
// owner may, regardless of status.
func CanMutate(s *store.Story, requesterID string) bool {
	return s != nil && isOwner(s, requesterID)
}

func isOwner(s *store.Story, requesterID string) bool {
	return requesterID != "" && s.UserID == requesterID
}

// Subject is anything that carries a story record, such as *store.Story or
// *store.StoryWithOwner.
type Subject interface {
	Record() *store.Story
}

// VisibleCollection returns the public stories in stories, newest first.
// The input slice is not modified.
func VisibleCollection[S Subject](stories []S) []S {
	out := make([]S, 0, len(stories))
	for _, s := range stories {
		if r := s.Record(); r != nil && r.Status == store.StatusPublic {
			out = append(out, s)
		}
	}
	sortNewestFirst(out)
	return out
}

// OwnedCollection returns the stories owned by ownerID that requesterID may
// view, newest first. The owner sees every story; anyone else sees only the
// public ones.
func OwnedCollection[S Subject](stories []S, ownerID, requesterID string) []S {
	out := make([]S, 0, len(stories))
	for _, s := range stories {
		r := s.Record()
		if r == nil || r.UserID != ownerID {
			continue
		}
		if CanView(r, requesterID) {
			out = append(out, s)
		}
	}
	sortNewestFirst(out)
	return out
}

// sortNewestFirst orders by created_at descending, ties broken by id descending,
// matching the ORDER BY used by the store.
func sortNewestFirst[S Subject](stories []S) {
	slices.SortStableFunc(stories, func(a, b S) int {
		ra, rb := a.Record(), b.Record()
		if c := rb.CreatedAt.Compare(ra.CreatedAt); c != 0 {
			return c
		}
		switch {
		case ra.ID > rb.ID:
			return -1
		case ra.ID < rb.ID:
			return 1
		}
		return 0
	})
}

// Action is an operation a requester attempts on a single story.
type Action string

const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Decision is the outcome of Authorize.
type Decision int

const (
	// Allowed means the action may proceed.
	Allowed Decision = iota
	// Denied means the story exists but the requester may not perform the action.
	Denied
	// NotFound means the story does not exist. No ownership check was made.
	NotFound
	// Failed means the lookup failed for a reason other than absence.
	Failed
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	case NotFound:
		return "not_found"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Authorize folds a story lookup result and an access check into a single
// Decision. lookupErr is the error returned by the store lookup that produced
// s; store.ErrNotFound (or a nil story) yields NotFound and any other error
// yields Failed, in both cases before ownership is examined.
func Authorize(s *store.Story, lookupErr error, requesterID string, action Action) Decision {
	if lookupErr != nil {
		if errors.Is(lookupErr, store.ErrNotFound) {
			return NotFound
		}
		return Failed
	}
	if s == nil {
		return NotFound
	}

	var ok bool
	if action == ActionView {
		ok = CanView(s, requesterID)
	} else {
		ok = CanMutate(s, requesterID)
	}
	if !ok {
		return Denied
	}
	return Allowed
}
