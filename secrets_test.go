package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identity "github.com/homequest/go-identity"
)

func TestHashSecretRoundTrip(t *testing.T) {
	hash, err := identity.HashSecret("secret123")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "secret123", hash)

	assert.NoError(t, identity.CompareSecretAndHash("secret123", hash))

	err = identity.CompareSecretAndHash("wrong-secret", hash)
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrMismatchedHashAndPassword)
}

func TestHashSecretRejectsEmpty(t *testing.T) {
	_, err := identity.HashSecret("")
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrNoEmptyString)
}

func TestGenerateTemporarySecret(t *testing.T) {
	first := identity.GenerateTemporarySecret()
	second := identity.GenerateTemporarySecret()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestDeterministicIdentityID(t *testing.T) {
	first, err := identity.DeterministicIdentityID("kofi@example.com")
	require.NoError(t, err)

	second, err := identity.DeterministicIdentityID("kofi@example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := identity.DeterministicIdentityID("ama@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}
