// Package auth implements C2: password hashing, short-lived signed bearer
// tokens with server-side jti revocation, request-state user injection, and
// RBAC helpers.
package auth

import (
	"context"
	"time"
)

// Level mirrors spec's User.level enum.
type Level string

const (
	LevelNormal     Level = "NORMAL"
	LevelAdmin      Level = "ADMIN"
	LevelAdminGeral Level = "ADMIN_GERAL"
)

// Group is the owning tenant for a set of agents and users.
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Level        Level     `json:"level"`
	GroupID      string    `json:"group_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AccessToken records a bearer token issuance so it can be revoked
// server-side independently of its signature validity.
type AccessToken struct {
	JTI       string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Principal is what request-state carries for an authenticated caller.
type Principal struct {
	ID      string
	Email   string
	Level   Level
	GroupID string
}

type contextKey string

const principalContextKey contextKey = "auth.principal"

// WithPrincipal attaches a principal to ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// CurrentPrincipal extracts the principal attached by the middleware, if any.
func CurrentPrincipal(ctx context.Context) (*Principal, bool) {
	v := ctx.Value(principalContextKey)
	if v == nil {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok && p != nil
}
