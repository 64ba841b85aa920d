package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose scopes an account token to exactly one lifecycle flow. A token
// issued for one purpose never verifies under another, regardless of
// signature validity.
type Purpose string

const (
	PurposeConfirm     Purpose = "confirm"
	PurposeReset       Purpose = "reset"
	PurposeChangeEmail Purpose = "change_email"
)

// DefaultAccountTokenTTL is used when the caller does not override the
// token lifetime.
const DefaultAccountTokenTTL = time.Hour

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures, and
	// purpose mismatches.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired means the signature checked out but the absolute
	// expiry embedded in the token has passed. Kept distinct so callers
	// can offer a fresh link instead of a generic failure.
	ErrTokenExpired = errors.New("token expired")
)

// AccountClaims is the payload of a signed account token. Subject carries
// the user id; NewEmail is only set for change-email tokens.
type AccountClaims struct {
	Purpose  Purpose `json:"pur"`
	NewEmail string  `json:"new_email,omitempty"`
	jwt.RegisteredClaims
}

// IssueAccountToken signs a self-contained, time-limited token binding
// userID to purpose. The expiry written into the token is absolute.
func IssueAccountToken(secret string, purpose Purpose, userID string, newEmail string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = DefaultAccountTokenTTL
	}

	now := time.Now()
	claims := AccountClaims{
		Purpose:  purpose,
		NewEmail: newEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign account token: %w", err)
	}
	return signed, nil
}

// VerifyAccountToken checks signature, expiry, and purpose, in that
// order of reporting: an expired token with a valid signature returns
// ErrTokenExpired, everything else that fails returns ErrTokenInvalid.
// Verification never mutates state.
func VerifyAccountToken(tokenStr string, secret string, purpose Purpose) (*AccountClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccountClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*AccountClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
