package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func (s *Store) CreateUser(email, passwordHash string) (*User, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		id, email, passwordHash, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUser(id)
}

func (s *Store) GetUser(id string) (*User, error) {
	return s.getUser(`WHERE id = ?`, id)
}

func (s *Store) GetUserByEmail(email string) (*User, error) {
	return s.getUser(`WHERE email = ?`, email)
}

func (s *Store) getUser(where string, arg any) (*User, error) {
	u := &User{}
	var createdAt string
	err := s.db.QueryRow(
		`SELECT id, email, password_hash, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return u, nil
}

func (s *Store) CreateToken(token, userID string, expiresAt time.Time) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO auth_tokens (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		token, userID, expiresAt.UTC().Format(time.RFC3339), now,
	)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetToken returns ErrNotFound for unknown tokens. Expiry is left to the
// caller.
func (s *Store) GetToken(token string) (*Token, error) {
	t := &Token{}
	var expiresAt, createdAt string
	err := s.db.QueryRow(
		`SELECT token, user_id, expires_at, created_at FROM auth_tokens WHERE token = ?`, token,
	).Scan(&t.Token, &t.UserID, &expiresAt, &createdAt)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	t.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return t, nil
}

func (s *Store) DeleteToken(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_tokens WHERE token = ?`, token)
	return err
}

// DeleteExpiredTokens removes tokens that expired before now and reports how
// many were removed.
func (s *Store) DeleteExpiredTokens(now time.Time) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM auth_tokens WHERE expires_at <= ?`, now.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
