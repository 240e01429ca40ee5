package vault

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("secret-one")
	require.NoError(t, err)

	sealed, err := c.Encrypt("12345678901")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sealed, "v1:"))
	require.NotContains(t, sealed, "12345678901")

	again, err := c.Encrypt("12345678901")
	require.NoError(t, err)
	require.NotEqual(t, sealed, again, "nonce must be random")

	plain, err := c.Decrypt(sealed)
	require.NoError(t, err)
	require.Equal(t, "12345678901", plain)
}

func TestCipherRejectsTamperingAndWrongKey(t *testing.T) {
	c, err := NewCipher("secret-one")
	require.NoError(t, err)
	other, err := NewCipher("secret-two")
	require.NoError(t, err)

	sealed, err := c.Encrypt("12345678901")
	require.NoError(t, err)

	_, err = other.Decrypt(sealed)
	require.ErrorIs(t, err, ErrDecrypt)

	tampered := sealed[:len(sealed)-2] + "AA"
	if tampered == sealed {
		tampered = sealed[:len(sealed)-2] + "BB"
	}
	_, err = c.Decrypt(tampered)
	require.ErrorIs(t, err, ErrDecrypt)

	for _, bad := range []string{"", "12345678901", "v1:!!!", "v1:AAAA", "v2:" + strings.TrimPrefix(sealed, "v1:")} {
		_, err = c.Decrypt(bad)
		require.ErrorIs(t, err, ErrDecrypt, bad)
	}

	_, err = NewCipher("")
	require.Error(t, err)
}

func TestMask(t *testing.T) {
	require.Equal(t, "*******8901", Mask("12345678901"))
	require.Equal(t, "*2345", Mask("12345"))
	require.Equal(t, "****", Mask("1234"))
	require.Equal(t, "**", Mask("12"))
	require.Equal(t, "", Mask(""))
}
