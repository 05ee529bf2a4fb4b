package api

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joestump/storybooks/internal/store"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// parsePagination extracts cursor and limit from query parameters.
// limit defaults to 50 and is silently capped at 200.
func parsePagination(r *http.Request) (cursor string, limit int) {
	cursor = r.URL.Query().Get("cursor")
	limit = defaultLimit

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	return cursor, limit
}

// encodeCursor turns the last story of a page into an opaque cursor.
func encodeCursor(c store.PageCursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor reverses encodeCursor. An empty cursor means the first page;
// ok is false when the cursor is present but malformed.
func decodeCursor(cursor string) (c *store.PageCursor, ok bool) {
	if cursor == "" {
		return nil, true
	}
	b, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, false
	}
	ts, id, found := strings.Cut(string(b), "|")
	if !found || id == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, false
	}
	return &store.PageCursor{CreatedAt: t, ID: id}, true
}
