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

type User struct {
	ID          string    `db:"id"`
	Provider    string    `db:"provider"`
	Subject     string    `db:"subject"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	Image       string    `db:"image"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Name returns the display name, falling back to the email address.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// Profile is the identity asserted by the login provider.
type Profile struct {
	Provider    string
	Subject     string
	Email       string
	DisplayName string
	Image       string
}

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) q(query string) string { return s.db.Rebind(query) }

// Upsert creates or refreshes the user record for a login. Returning users
// keep their id; email, display name and image follow the provider.
func (s *UserStore) Upsert(ctx context.Context, p Profile) (*User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	query := `
		INSERT INTO users (id, provider, subject, email, display_name, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, subject) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			image = excluded.image,
			updated_at = excluded.updated_at`
	if s.db.DriverName() == "mysql" {
		query = `
		INSERT INTO users (id, provider, subject, email, display_name, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			email = VALUES(email),
			display_name = VALUES(display_name),
			image = VALUES(image),
			updated_at = VALUES(updated_at)`
	}

	_, err := s.db.ExecContext(ctx, s.q(query),
		id, p.Provider, p.Subject, p.Email, p.DisplayName, p.Image, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	var u User
	err = s.db.GetContext(ctx, &u, s.q(`SELECT * FROM users WHERE provider = ? AND subject = ?`), p.Provider, p.Subject)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	return &u, nil
}

// GetByEmail returns the user matching email, or ErrNotFound.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT * FROM users WHERE email = ?`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns the user matching id, or ErrNotFound.
func (s *UserStore) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT * FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
