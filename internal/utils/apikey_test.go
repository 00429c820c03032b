package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewAPIKey(t *testing.T) {
	raw, prefix, err := NewAPIKey()
	require.NoError(t, err)
	assert.Len(t, raw, 64)
	assert.Equal(t, raw[:KeyPrefixLen], prefix)

	again, _, err := NewAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, raw, again)
}

func TestHashAndVerifyAPIKey(t *testing.T) {
	raw, _, err := NewAPIKey()
	require.NoError(t, err)

	hash, err := HashAPIKey(raw, bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, raw, hash)
	assert.True(t, VerifyAPIKey(hash, raw))
	assert.False(t, VerifyAPIKey(hash, raw+"x"))
}

func TestKeyPrefix(t *testing.T) {
	_, err := KeyPrefix("short")
	assert.ErrorIs(t, err, ErrShortKey)

	p, err := KeyPrefix("0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, "0123456789ab", p)
}
