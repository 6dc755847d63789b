package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "round-trip")
	id := uuid.New()

	token, err := GenerateToken(id, "bilal", "Bilal", "staff")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "bilal", claims.Username)
	assert.Equal(t, "staff", claims.Role)
	assert.Equal(t, issuer, claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateTokenRejects(t *testing.T) {
	t.Setenv("JWT_SECRET", "first")
	token, err := GenerateToken(uuid.New(), "bilal", "Bilal", "staff")
	require.NoError(t, err)

	_, err = ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	t.Setenv("JWT_SECRET", "second")
	_, err = ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenChecksIssuerAndExpiry(t *testing.T) {
	t.Setenv("JWT_SECRET", "claims")
	sign := func(c Claims) string {
		s, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, c).SignedString(GetSecretKey())
		require.NoError(t, err)
		return s
	}

	foreign := sign(Claims{Username: "x", RegisteredClaims: gojwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	_, err := ValidateToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := sign(Claims{Username: "x", RegisteredClaims: gojwt.RegisteredClaims{
		Issuer:    issuer,
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	_, err = ValidateToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
