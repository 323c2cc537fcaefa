package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuerIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), "agentforge", time.Minute)
	u := &User{ID: "user-1", GroupID: "group-1", Level: LevelAdmin}

	token, jti, expiresAt, err := issuer.Issue(u)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, jti)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "group-1", claims.Group)
	assert.Equal(t, string(LevelAdmin), claims.Level)
	assert.Equal(t, jti, claims.ID)
	assert.Equal(t, "agentforge", claims.Issuer)
}

func TestTokenIssuerRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret-a"), "agentforge", time.Minute)
	token, _, _, err := issuer.Issue(&User{ID: "u"})
	require.NoError(t, err)

	other := NewTokenIssuer([]byte("secret-b"), "agentforge", time.Minute)
	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestTokenIssuerRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), "agentforge", time.Minute)
	// NewTokenIssuer replaces a non-positive TTL with its default, so set
	// the negative TTL directly to mint an already-expired token.
	issuer.ttl = -time.Minute
	token, _, _, err := issuer.Issue(&User{ID: "u"})
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.Error(t, err)
}

func TestTokenIssuerRejectsWrongIssuer(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), "agentforge", time.Minute)
	token, _, _, err := issuer.Issue(&User{ID: "u"})
	require.NoError(t, err)

	other := NewTokenIssuer([]byte("test-secret"), "other-issuer", time.Minute)
	_, err = other.Verify(token)
	assert.Error(t, err)
}
