package secret

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	for _, plain := range []string{"hunter2", "a-much-longer-database-password-with-symbols-!@#"} {
		sealed, err := s.Seal(plain)
		require.NoError(t, err)
		assert.True(t, IsSealed(sealed))
		assert.NotContains(t, sealed, plain)

		opened, err := s.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, plain, opened)
	}
}

func TestSealer_EmptyAndPlainValues(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	opened, err := s.Open("not-sealed")
	require.NoError(t, err)
	assert.Equal(t, "not-sealed", opened)
}

func TestSealer_NonceDiffers(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	a, err := s.Seal("same")
	require.NoError(t, err)
	b, err := s.Seal("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSealer_WrongKey(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)
	sealed, err := s.Seal("hunter2")
	require.NoError(t, err)

	other, err := NewSealer(strings.Repeat("ff", 32))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.ErrorContains(t, err, "open sealed value")

	_, err = s.Open(sealedPrefix + "zz")
	assert.ErrorContains(t, err, "decode sealed value")

	_, err = s.Open(sealedPrefix + "00")
	assert.EqualError(t, err, "sealed value too short")
}

func TestNewSealer_InvalidKey(t *testing.T) {
	_, err := NewSealer("not-hex")
	assert.ErrorContains(t, err, "decode USERSTREAM_SECRET_KEY")

	_, err = NewSealer("abcd")
	assert.EqualError(t, err, "USERSTREAM_SECRET_KEY must be 32 bytes, got 2")
}
