package auth_test

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotedesk/backend/internal/apperr"
	"quotedesk/backend/internal/auth"
)

const (
	secret = "unit-test-secret"
	issuer = "quotedesk-test"
)

func TestVerify_MintRoundTrip(t *testing.T) {
	v := auth.NewJWTVerifier(secret, issuer)

	token, err := v.Mint("supplier-7", time.Hour)
	require.NoError(t, err)

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "supplier-7", identity)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := auth.NewJWTVerifier("other-secret", issuer).Mint("supplier-7", time.Hour)
	require.NoError(t, err)

	_, err = auth.NewJWTVerifier(secret, issuer).Verify(token)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
}

func TestVerify_Expired(t *testing.T) {
	v := auth.NewJWTVerifier(secret, issuer)
	token, err := v.Mint("supplier-7", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
}

func TestVerify_WrongIssuer(t *testing.T) {
	token, err := auth.NewJWTVerifier(secret, "some-other-service").Mint("supplier-7", time.Hour)
	require.NoError(t, err)

	_, err = auth.NewJWTVerifier(secret, issuer).Verify(token)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
}

func TestVerify_MissingSubject(t *testing.T) {
	claims := jwt.MapClaims{
		"iss": issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = auth.NewJWTVerifier(secret, issuer).Verify(token)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
}

func TestVerify_MissingExpiry(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "supplier-7",
		"iss": issuer,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = auth.NewJWTVerifier(secret, issuer).Verify(token)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
}

func TestVerify_Garbage(t *testing.T) {
	_, err := auth.NewJWTVerifier(secret, issuer).Verify("not-a-jwt")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
}
