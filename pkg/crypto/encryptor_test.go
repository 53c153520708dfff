package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncryptor(t *testing.T) {
	t.Run("empty key is ephemeral", func(t *testing.T) {
		enc, err := NewEncryptor("")
		require.NoError(t, err)
		assert.True(t, enc.Ephemeral())
		assert.True(t, strings.HasPrefix(enc.PublicKey(), "age1"))
	})

	t.Run("configured key", func(t *testing.T) {
		key, err := GenerateKey()
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(key, "AGE-SECRET-KEY-1"))

		enc, err := NewEncryptor(key)
		require.NoError(t, err)
		assert.False(t, enc.Ephemeral())
	})

	t.Run("malformed key", func(t *testing.T) {
		_, err := NewEncryptor("not-an-age-key")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ENCRYPTION_KEY")
	})
}

func TestSealOpen(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	sealed, err := enc.Seal("aB3dE5gH7j")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "aB3dE5gH7j")

	again, err := enc.Seal("aB3dE5gH7j")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)

	opened, err := enc.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "aB3dE5gH7j", opened)
}

func TestOpen_SurvivesRestartWithSameKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	first, err := NewEncryptor(key)
	require.NoError(t, err)
	sealed, err := first.Seal("Zx9Yw8Vu7T")
	require.NoError(t, err)

	second, err := NewEncryptor(key)
	require.NoError(t, err)
	opened, err := second.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "Zx9Yw8Vu7T", opened)
}

func TestOpen_Errors(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)
	other, err := NewEncryptor("")
	require.NoError(t, err)

	sealed, err := other.Seal("secret")
	require.NoError(t, err)

	_, err = enc.Open(sealed)
	assert.Error(t, err, "wrong identity")

	_, err = enc.Open("%%%not-base64")
	assert.Error(t, err)

	_, err = enc.Open("")
	assert.ErrorIs(t, err, ErrNotSealed)
}

func TestIsSealed(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)
	sealed, err := enc.Seal("Ab12Cd34Ef")
	require.NoError(t, err)

	assert.True(t, IsSealed(sealed))
	assert.False(t, IsSealed("Ab12Cd34Ef"))
	assert.False(t, IsSealed(""))
	assert.False(t, IsSealed("QWIxMkNkMzRFZkFiMTJDZDM0RWZBYjEyQ2QzNEVm"), "base64 of a bare password")
}
