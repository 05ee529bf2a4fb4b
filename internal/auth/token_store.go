package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/joestump/storybooks/internal/store"
)

// TokenPrefix marks plaintext API tokens so they are recognizable in logs and
// secret scanners.
const TokenPrefix = "st_"

// TokenRecord represents a row in the api_tokens table. Only the SHA-256 of
// the plaintext is stored.
type TokenRecord struct {
	ID         string       `db:"id"`
	UserID     string       `db:"user_id"`
	Name       string       `db:"name"`
	TokenHash  string       `db:"token_hash"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
	ExpiresAt  sql.NullTime `db:"expires_at"`
	CreatedAt  time.Time    `db:"created_at"`
	RevokedAt  sql.NullTime `db:"revoked_at"`
}

// Active reports whether the token may authenticate a request at now.
func (t *TokenRecord) Active(now time.Time) bool {
	if t.RevokedAt.Valid {
		return false
	}
	return !t.ExpiresAt.Valid || t.ExpiresAt.Time.After(now)
}

// TokenStore defines operations for API token management.
type TokenStore interface {
	Create(ctx context.Context, userID, name, tokenHash string, expiresAt *time.Time) (*TokenRecord, error)
	GetByHash(ctx context.Context, hash string) (*TokenRecord, error)
	ListByUser(ctx context.Context, userID string) ([]*TokenRecord, error)
	Revoke(ctx context.Context, id, userID string) error
	UpdateLastUsed(ctx context.Context, id string) error
}

// SQLTokenStore is the sqlx-backed implementation of TokenStore.
type SQLTokenStore struct {
	db *sqlx.DB
}

var _ TokenStore = (*SQLTokenStore)(nil)

func NewSQLTokenStore(db *sqlx.DB) *SQLTokenStore {
	return &SQLTokenStore{db: db}
}

// q rebinds ? placeholders to the driver's native format ($1,$2,... for PostgreSQL).
func (s *SQLTokenStore) q(query string) string { return s.db.Rebind(query) }

func (s *SQLTokenStore) Create(ctx context.Context, userID, name, tokenHash string, expiresAt *time.Time) (*TokenRecord, error) {
	id := uuid.New().String()

	var exp sql.NullTime
	if expiresAt != nil {
		exp = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO api_tokens (id, user_id, name, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), id, userID, name, tokenHash, exp, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("insert api token: %w", err)
	}
	return s.get(ctx, `SELECT * FROM api_tokens WHERE id = ?`, id)
}

// GetByHash returns the token record matching the given hash, or store.ErrNotFound.
// Revoked and expired records are returned too; callers check Active.
func (s *SQLTokenStore) GetByHash(ctx context.Context, hash string) (*TokenRecord, error) {
	return s.get(ctx, `SELECT * FROM api_tokens WHERE token_hash = ?`, hash)
}

func (s *SQLTokenStore) get(ctx context.Context, query string, arg any) (*TokenRecord, error) {
	var rec TokenRecord
	err := s.db.GetContext(ctx, &rec, s.q(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByUser returns the user's tokens, newest first.
func (s *SQLTokenStore) ListByUser(ctx context.Context, userID string) ([]*TokenRecord, error) {
	var records []*TokenRecord
	err := s.db.SelectContext(ctx, &records, s.q(`
		SELECT * FROM api_tokens WHERE user_id = ? ORDER BY created_at DESC
	`), userID)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Revoke marks a token as revoked. Returns store.ErrNotFound if the token does
// not exist or belongs to someone else.
func (s *SQLTokenStore) Revoke(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE api_tokens SET revoked_at = ? WHERE id = ? AND user_id = ?
	`), time.Now().UTC(), id, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLTokenStore) UpdateLastUsed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		UPDATE api_tokens SET last_used_at = ? WHERE id = ?
	`), time.Now().UTC(), id)
	return err
}

// IssueToken generates a token for userID, stores its hash and returns the
// plaintext. The plaintext is not recoverable afterwards. A zero ttl means the
// token never expires.
func IssueToken(ctx context.Context, ts TokenStore, userID, name string, ttl time.Duration) (string, *TokenRecord, error) {
	plaintext, hash, err := GenerateToken()
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	var expiresAt *time.Time
	if ttl > 0 {
		exp := time.Now().Add(ttl)
		expiresAt = &exp
	}
	rec, err := ts.Create(ctx, userID, name, hash, expiresAt)
	if err != nil {
		return "", nil, err
	}
	return plaintext, rec, nil
}

const base62 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// GenerateToken returns TokenPrefix followed by 32 random bytes in base62,
// and the hex SHA-256 of that plaintext.
func GenerateToken() (plaintext, hash string, err error) {
	b := make([]byte, 32)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}

	n := new(big.Int).SetBytes(b)
	radix := big.NewInt(int64(len(base62)))
	mod := new(big.Int)
	var digits []byte
	for n.Sign() > 0 {
		n.DivMod(n, radix, mod)
		digits = append(digits, base62[mod.Int64()])
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	plaintext = TokenPrefix + string(digits)
	return plaintext, HashToken(plaintext), nil
}

// HashToken returns the hex-encoded SHA-256 hash of a plaintext token.
func HashToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}
