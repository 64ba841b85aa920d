package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func TestIssueAndVerifyAccountToken(t *testing.T) {
	t.Parallel()

	token, err := IssueAccountToken(testSecret, PurposeConfirm, "user-1", "", time.Hour)
	require.NoError(t, err)

	claims, err := VerifyAccountToken(token, testSecret, PurposeConfirm)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, PurposeConfirm, claims.Purpose)
	require.Empty(t, claims.NewEmail)
}

func TestVerifyAccountToken_CarriesNewEmail(t *testing.T) {
	t.Parallel()

	token, err := IssueAccountToken(testSecret, PurposeChangeEmail, "user-1", "new@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := VerifyAccountToken(token, testSecret, PurposeChangeEmail)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", claims.NewEmail)
}

func TestVerifyAccountToken_Expired(t *testing.T) {
	t.Parallel()

	token, err := IssueAccountToken(testSecret, PurposeReset, "user-1", "", -time.Second)
	require.NoError(t, err)

	_, err = VerifyAccountToken(token, testSecret, PurposeReset)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyAccountToken_PurposeMismatch(t *testing.T) {
	t.Parallel()

	token, err := IssueAccountToken(testSecret, PurposeConfirm, "user-1", "", time.Hour)
	require.NoError(t, err)

	for _, purpose := range []Purpose{PurposeReset, PurposeChangeEmail} {
		_, err = VerifyAccountToken(token, testSecret, purpose)
		require.ErrorIs(t, err, ErrTokenInvalid)
	}
}

func TestVerifyAccountToken_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := IssueAccountToken(testSecret, PurposeConfirm, "user-1", "", time.Hour)
	require.NoError(t, err)

	_, err = VerifyAccountToken(token, "other-secret", PurposeConfirm)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyAccountToken_Tampered(t *testing.T) {
	t.Parallel()

	token, err := IssueAccountToken(testSecret, PurposeConfirm, "user-1", "", time.Hour)
	require.NoError(t, err)

	tampered := []byte(token)
	if tampered[10] == 'a' {
		tampered[10] = 'b'
	} else {
		tampered[10] = 'a'
	}

	_, err = VerifyAccountToken(string(tampered), testSecret, PurposeConfirm)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyAccountToken_Malformed(t *testing.T) {
	t.Parallel()

	_, err := VerifyAccountToken("not.a.token", testSecret, PurposeConfirm)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssueAccountToken_DefaultTTL(t *testing.T) {
	t.Parallel()

	token, err := IssueAccountToken(testSecret, PurposeConfirm, "user-1", "", 0)
	require.NoError(t, err)

	claims, err := VerifyAccountToken(token, testSecret, PurposeConfirm)
	require.NoError(t, err)

	expiry := claims.ExpiresAt.Time
	require.WithinDuration(t, time.Now().Add(DefaultAccountTokenTTL), expiry, time.Minute)
}
