package auth

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// SessionUserIDKey holds the authenticated user's id. Its presence is the
// only thing that marks a session as logged in.
const SessionUserIDKey = "user_id"

// NewDBStore returns the session store for the application database. The
// driver selects the table dialect: "mysql", "postgres", or "sqlite3"
// (default).
func NewDBStore(db *sqlx.DB, driver string) scs.Store {
	switch driver {
	case "mysql":
		return mysqlstore.New(db.DB)
	case "postgres":
		return postgresstore.New(db.DB)
	default: // sqlite3
		return sqlite3store.New(db.DB)
	}
}

// NewRedisStore returns a session store kept in Redis. Expiry is handled by
// Redis TTLs, so no cleanup goroutine runs.
func NewRedisStore(client *redis.Client) scs.Store {
	return goredisstore.New(client)
}

// NewSessionManager creates an SCS session manager over st. secure controls
// the cookie's Secure flag and is only off for local plain-HTTP development.
func NewSessionManager(st scs.Store, lifetime time.Duration, secure bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = st
	sm.Lifetime = lifetime
	sm.Cookie.Name = "storybooks_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secure
	sm.Cookie.SameSite = http.SameSiteLaxMode
	return sm
}
