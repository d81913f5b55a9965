package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSealer(t *testing.T) {
	_, err := NewSealer([]byte("too-short"))
	assert.Error(t, err)

	_, err = NewSealer(bytes.Repeat([]byte("k"), 32))
	assert.NoError(t, err)
}

func TestSealerRoundTrip(t *testing.T) {
	sealer, err := NewSealer(bytes.Repeat([]byte("k"), 32))
	require.NoError(t, err)

	plaintext := []byte("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")
	sealed, err := sealer.Seal(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)

	// Random nonce means sealing twice gives different ciphertexts
	sealed2, err := sealer.Seal(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, sealed2)
}

func TestSealerRejectsTampering(t *testing.T) {
	sealer, err := NewSealer(bytes.Repeat([]byte("k"), 32))
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("secret"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0x01
	_, err = sealer.Open(sealed)
	assert.Error(t, err)
}

func TestSealerRejectsWrongKey(t *testing.T) {
	sealer, err := NewSealer(bytes.Repeat([]byte("a"), 32))
	require.NoError(t, err)
	other, err := NewSealer(bytes.Repeat([]byte("b"), 32))
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.Error(t, err)

	_, err = other.Open([]byte("short"))
	assert.Error(t, err)
}
