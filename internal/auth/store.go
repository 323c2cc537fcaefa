package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("auth: not found")

// Store provides Postgres-backed persistence for groups, users, and access
// tokens, and the RBAC lookups the middleware needs.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InitSchema creates the auth tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS groups (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT UNIQUE NOT NULL,
  password_hash TEXT NOT NULL,
  level TEXT NOT NULL,
  group_id TEXT REFERENCES groups(id) ON DELETE SET NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS access_tokens (
  jti TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  issued_at TIMESTAMPTZ NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL,
  revoked_at TIMESTAMPTZ
);
`)
	return err
}

// AnyUserExists reports whether the first-setup call has already run.
func (s *Store) AnyUserExists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users)`).Scan(&exists)
	return exists, err
}

// CreateGroup inserts a new group, generating an id if empty.
func (s *Store) CreateGroup(ctx context.Context, g *Group) (*Group, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO groups(id, name, description) VALUES ($1,$2,$3)`,
		g.ID, g.Name, g.Description)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// CreateUser inserts a new user, generating an id if empty.
func (s *Store) CreateUser(ctx context.Context, u *User) (*User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := s.pool.QueryRow(ctx, `
INSERT INTO users(id, email, password_hash, level, group_id)
VALUES ($1,$2,$3,$4,NULLIF($5,''))
RETURNING created_at, updated_at
`, u.ID, u.Email, u.PasswordHash, string(u.Level), u.GroupID)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByEmail fetches a user by email for login.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	var groupID *string
	err := s.pool.QueryRow(ctx, `
SELECT id, email, password_hash, level, group_id, created_at, updated_at
FROM users WHERE email=$1`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Level, &groupID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if groupID != nil {
		u.GroupID = *groupID
	}
	return &u, nil
}

// GetUserByID fetches a user by id for token verification.
func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	var u User
	var groupID *string
	err := s.pool.QueryRow(ctx, `
SELECT id, email, password_hash, level, group_id, created_at, updated_at
FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Level, &groupID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if groupID != nil {
		u.GroupID = *groupID
	}
	return &u, nil
}

// RecordAccessToken persists the jti issued for a token so it can later be
// checked for revocation.
func (s *Store) RecordAccessToken(ctx context.Context, t *AccessToken) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO access_tokens(jti, user_id, issued_at, expires_at)
VALUES ($1,$2,$3,$4)
`, t.JTI, t.UserID, t.IssuedAt, t.ExpiresAt)
	return err
}

// IsTokenValid reports whether jti exists, is unrevoked, and unexpired.
func (s *Store) IsTokenValid(ctx context.Context, jti string) (bool, error) {
	var revokedAt *time.Time
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx, `SELECT revoked_at, expires_at FROM access_tokens WHERE jti=$1`, jti).
		Scan(&revokedAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if revokedAt != nil {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		return false, nil
	}
	return true, nil
}

// RevokeToken marks a jti revoked (logout).
func (s *Store) RevokeToken(ctx context.Context, jti string) error {
	_, err := s.pool.Exec(ctx, `UPDATE access_tokens SET revoked_at=now() WHERE jti=$1 AND revoked_at IS NULL`, jti)
	return err
}
