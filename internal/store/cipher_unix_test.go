//go:build !windows

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOSCipherRoundTripsWithArbitraryLengthFallbackKey(t *testing.T) {
	c, err := NewOSCipher([]byte("not-a-valid-aes-length"))
	require.NoError(t, err)

	ciphertext, err := c.Encrypt([]byte("secret-value"))
	require.NoError(t, err)

	plaintext, err := c.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "secret-value", string(plaintext))
}
