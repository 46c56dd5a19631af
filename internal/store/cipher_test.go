package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveAESKeyIsDeterministicAndValidLength(t *testing.T) {
	k1, err := DeriveAESKey([]byte("operator-passphrase"))
	require.NoError(t, err)
	assert.Len(t, k1, 32)

	k2, err := DeriveAESKey([]byte("operator-passphrase"))
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestDeriveAESKeyDiffersByMaterial(t *testing.T) {
	k1, err := DeriveAESKey([]byte("a"))
	require.NoError(t, err)
	k2, err := DeriveAESKey([]byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestDeriveAESKeyAcceptsNilMaterial(t *testing.T) {
	key, err := DeriveAESKey(nil)
	require.NoError(t, err)
	assert.Len(t, key, 32)
}
