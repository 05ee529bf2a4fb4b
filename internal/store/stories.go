package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	StatusPublic  = "public"
	StatusPrivate = "private"
)

// Story represents a row in the stories table.
type Story struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Record returns s itself. It lets collection helpers accept both *Story and
// *StoryWithOwner.
func (s *Story) Record() *Story { return s }

// IsPublic reports whether the story is listed publicly.
func (s *Story) IsPublic() bool { return s.Status == StatusPublic }

// StoryWithOwner is a story with its owning user eagerly loaded.
type StoryWithOwner struct {
	Story
	Owner User `db:"owner"`
}

// PageCursor marks the last story of a page in newest-first order.
type PageCursor struct {
	CreatedAt time.Time
	ID        string
}

// StoryStore is the sqlx-backed implementation of StoryStoreIface.
type StoryStore struct {
	db *sqlx.DB
}

func NewStoryStore(db *sqlx.DB) *StoryStore {
	return &StoryStore{db: db}
}

// q rebinds ? placeholders to the driver's native format ($1,$2,... for PostgreSQL).
func (s *StoryStore) q(query string) string { return s.db.Rebind(query) }

const storyColumns = `s.id, s.user_id, s.title, s.body, s.status, s.created_at, s.updated_at`

// selectWithOwner joins the owning user, aliasing its columns so sqlx scans
// them into StoryWithOwner.Owner.
const selectWithOwner = `SELECT ` + storyColumns + `,
	u.id AS "owner.id", u.provider AS "owner.provider", u.subject AS "owner.subject",
	u.email AS "owner.email", u.display_name AS "owner.display_name", u.image AS "owner.image",
	u.created_at AS "owner.created_at", u.updated_at AS "owner.updated_at"
FROM stories s
INNER JOIN users u ON u.id = s.user_id`

// Create inserts a story owned by ownerID. The input is normalized and
// validated first; validation failures are returned unwrapped so callers can
// show them to the user.
func (s *StoryStore) Create(ctx context.Context, ownerID string, in StoryInput) (*Story, error) {
	if ownerID == "" {
		return nil, errors.New("create story: owner is required")
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO stories (id, user_id, title, body, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), id, ownerID, in.Title, in.Body, in.Status, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert story: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID returns the story matching id, or ErrNotFound.
func (s *StoryStore) GetByID(ctx context.Context, id string) (*Story, error) {
	var st Story
	err := s.db.GetContext(ctx, &st, s.q(`SELECT `+storyColumns+` FROM stories s WHERE s.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get story %s: %w", id, err)
	}
	return &st, nil
}

// GetWithOwner returns the story matching id with its owner loaded, or ErrNotFound.
func (s *StoryStore) GetWithOwner(ctx context.Context, id string) (*StoryWithOwner, error) {
	var st StoryWithOwner
	err := s.db.GetContext(ctx, &st, s.q(selectWithOwner+` WHERE s.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get story %s with owner: %w", id, err)
	}
	return &st, nil
}

// ListPublic returns every public story, newest first, with owners loaded.
func (s *StoryStore) ListPublic(ctx context.Context) ([]*StoryWithOwner, error) {
	var stories []*StoryWithOwner
	err := s.db.SelectContext(ctx, &stories, s.q(selectWithOwner+`
		WHERE s.status = ?
		ORDER BY s.created_at DESC, s.id DESC
	`), StatusPublic)
	if err != nil {
		return nil, fmt.Errorf("list public stories: %w", err)
	}
	return stories, nil
}

// ListPublicPage returns up to limit public stories older than after (or the
// newest ones when after is nil), newest first.
func (s *StoryStore) ListPublicPage(ctx context.Context, after *PageCursor, limit int) ([]*StoryWithOwner, error) {
	var stories []*StoryWithOwner
	var err error
	if after == nil {
		err = s.db.SelectContext(ctx, &stories, s.q(selectWithOwner+`
			WHERE s.status = ?
			ORDER BY s.created_at DESC, s.id DESC
			LIMIT ?
		`), StatusPublic, limit)
	} else {
		ts := after.CreatedAt.UTC()
		err = s.db.SelectContext(ctx, &stories, s.q(selectWithOwner+`
			WHERE s.status = ? AND (s.created_at < ? OR (s.created_at = ? AND s.id < ?))
			ORDER BY s.created_at DESC, s.id DESC
			LIMIT ?
		`), StatusPublic, ts, ts, after.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list public stories page: %w", err)
	}
	return stories, nil
}

// ListByOwner returns the stories owned by ownerID, newest first. Private
// stories are included only when includePrivate is set.
func (s *StoryStore) ListByOwner(ctx context.Context, ownerID string, includePrivate bool) ([]*StoryWithOwner, error) {
	var stories []*StoryWithOwner
	var err error
	if includePrivate {
		err = s.db.SelectContext(ctx, &stories, s.q(selectWithOwner+`
			WHERE s.user_id = ?
			ORDER BY s.created_at DESC, s.id DESC
		`), ownerID)
	} else {
		err = s.db.SelectContext(ctx, &stories, s.q(selectWithOwner+`
			WHERE s.user_id = ? AND s.status = ?
			ORDER BY s.created_at DESC, s.id DESC
		`), ownerID, StatusPublic)
	}
	if err != nil {
		return nil, fmt.Errorf("list stories of %s: %w", ownerID, err)
	}
	return stories, nil
}

// Update overwrites the writable fields of a story. The owner and creation
// time are never touched. Returns ErrNotFound if the story does not exist.
func (s *StoryStore) Update(ctx context.Context, id string, in StoryInput) (*Story, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE stories SET title = ?, body = ?, status = ?, updated_at = ? WHERE id = ?
	`), in.Title, in.Body, in.Status, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update story %s: %w", id, err)
	}
	// MySQL reports changed rather than matched rows, so zero rows affected
	// is not proof of absence; GetByID settles it.
	if _, err := res.RowsAffected(); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete removes a story. Returns ErrNotFound if no row matched.
func (s *StoryStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM stories WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete story %s: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
