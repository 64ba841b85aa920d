package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("cat")
	require.NoError(t, err)

	require.True(t, VerifyPassword("cat", hash))
	require.False(t, VerifyPassword("dog", hash))
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("cat")
	require.NoError(t, err)
	second, err := HashPassword("cat")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, VerifyPassword("cat", first))
	require.True(t, VerifyPassword("cat", second))
}

func TestVerifyPassword_FailsClosed(t *testing.T) {
	t.Parallel()

	require.False(t, VerifyPassword("cat", nil))
	require.False(t, VerifyPassword("cat", []byte{}))
	require.False(t, VerifyPassword("cat", []byte("not-a-hash")))
	require.False(t, VerifyPassword("cat", []byte("$argon2id$v=19$t=3,m=65536,p=2$bad!$bad!")))
}

func TestVerifyPassword_TamperedHash(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("cat")
	require.NoError(t, err)

	tampered := make([]byte, len(hash))
	copy(tampered, hash)
	tampered[len(tampered)-1] ^= 0x01

	require.False(t, VerifyPassword("cat", tampered))
}
