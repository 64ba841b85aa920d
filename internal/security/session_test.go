package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	t.Parallel()

	token, err := GenerateAccessToken(testSecret, "user-7", 15*time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, "user-7", claims.UserID)
	require.Equal(t, "user-7", claims.Subject)
}

func TestParseAccessToken_Expired(t *testing.T) {
	t.Parallel()

	token, err := GenerateAccessToken(testSecret, "user-7", -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, testSecret)
	require.Error(t, err)
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := GenerateAccessToken(testSecret, "user-7", 15*time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "other-secret")
	require.Error(t, err)
}
