package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := deriveKey("a-test-passphrase-of-any-length")
	require.NoError(t, err)

	for _, plain := range []string{"", "hello world", "sk-super-secret-token-value"} {
		blob, err := Encrypt(key, plain)
		require.NoError(t, err)
		assert.NotEqual(t, plain, blob)

		got, err := Decrypt(key, blob)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestEncryptNondeterministic(t *testing.T) {
	key, err := deriveKey("another-passphrase")
	require.NoError(t, err)

	a, err := Encrypt(key, "same plaintext")
	require.NoError(t, err)
	b, err := Encrypt(key, "same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "nonce must be freshly random per call")
}

func TestDeriveKeyAcceptsRaw32Bytes(t *testing.T) {
	raw := "01234567890123456789012345678901"
	key, err := deriveKey(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), key)
}

func TestNormalizeDatabaseURL(t *testing.T) {
	assert.Equal(t, "postgres://x", normalizeDatabaseURL("psql postgres://x"))
	assert.Equal(t, "postgres://x", normalizeDatabaseURL(`"postgres://x"`))
	assert.Equal(t, "postgres://x", normalizeDatabaseURL("postgres://x"))
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "y"} {
		assert.True(t, isTruthy(v), v)
	}
	for _, v := range []string{"", "0", "false", "no"} {
		assert.False(t, isTruthy(v), v)
	}
}
