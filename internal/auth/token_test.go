package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount() Account {
	return Account{
		ID:       "0191b6f3-0000-7000-8000-000000000001",
		Username: "alice",
		Email:    "alice@x.com",
		Role:     RoleUser,
		IsActive: true,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-secret", time.Hour)

	token, err := issuer.Issue(testAccount())
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "0191b6f3-0000-7000-8000-000000000001", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, RoleUser, claims.Role)
}

func TestTokenExpiry(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-secret", -time.Minute)

	token, err := issuer.Issue(testAccount())
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", time.Hour).Issue(testAccount())
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenMalformed(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-secret", time.Hour)

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := issuer.Verify(raw)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	}
}

func TestTokenRejectsUnsignedAlgorithm(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-secret", time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "0191b6f3-0000-7000-8000-000000000001",
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenRejectsMissingSubject(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-secret", time.Hour)

	account := testAccount()
	account.ID = ""
	token, err := issuer.Issue(account)
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
