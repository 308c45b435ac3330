package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoRandomString(t *testing.T) {
	t.Run("Generate correct length", func(t *testing.T) {
		for _, length := range []int{8, 20, 32, 33} {
			str, err := CryptoRandomString(length)
			require.NoError(t, err)
			assert.Len(t, str, length)
		}
	})

	t.Run("Generate unique values", func(t *testing.T) {
		a, err := CryptoRandomString(32)
		require.NoError(t, err)
		b, err := CryptoRandomString(32)
		require.NoError(t, err)
		assert.NotEqual(t, a, b, "Random strings should not be identical")
	})

	t.Run("Generate hex characters only", func(t *testing.T) {
		str, err := CryptoRandomString(20)
		require.NoError(t, err)

		for _, c := range str {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'),
				"Character '%c' is not a valid hex digit", c)
		}
	})
}

func TestSHA256Hex(t *testing.T) {
	t.Run("Known vector", func(t *testing.T) {
		// echo -n "hello" | sha256sum
		assert.Equal(t,
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
			SHA256Hex("hello"))
	})

	t.Run("Output is 64 lowercase hex characters", func(t *testing.T) {
		result := SHA256Hex("any input")
		assert.Len(t, result, 64)
		for _, c := range result {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'),
				"Character '%c' is not a lowercase hex digit", c)
		}
	})

	t.Run("Same input produces same hash", func(t *testing.T) {
		assert.Equal(t, SHA256Hex("session-id"), SHA256Hex("session-id"))
	})

	t.Run("Different inputs produce different hashes", func(t *testing.T) {
		assert.NotEqual(t, SHA256Hex("session-a"), SHA256Hex("session-b"))
	})
}

func TestIsRedirectSafe(t *testing.T) {
	base := "https://postulaciones.nacionmx.com"

	tests := []struct {
		name     string
		redirect string
		want     bool
	}{
		{"empty redirect", "", true},
		{"relative path", "/admin", true},
		{"relative path with query", "/apply?step=2", true},
		{"protocol-relative", "//evil.com", false},
		{"backslash trick", "/\\evil.com", false},
		{"newline injection", "/admin\r\nSet-Cookie: x", false},
		{"same host absolute", "https://postulaciones.nacionmx.com/admin", true},
		{"foreign host", "https://evil.com/phish", false},
		{"javascript scheme", "javascript:alert(1)", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRedirectSafe(tt.redirect, base))
		})
	}
}
