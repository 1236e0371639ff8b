package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	digest, err := HashPassword("secret1")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	assert.NotEqual(t, "secret1", digest)

	assert.True(t, CheckPassword("secret1", digest))
	assert.False(t, CheckPassword("secret2", digest))
}

func TestCheckPasswordEmptyDigest(t *testing.T) {
	// OAuth-only accounts have no digest; a password login against them
	// must fail like any wrong password.
	assert.False(t, CheckPassword("anything", ""))
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
