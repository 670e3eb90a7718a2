// Package auth implements the credential-validation collaborator. The
// surrounding platform issues HS256 JWTs at login; the messaging core only
// verifies them and extracts the identity.
package auth

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"quotedesk/backend/internal/apperr"
)

// Verifier validates a credential and resolves the identity behind it.
type Verifier interface {
	Verify(token string) (identity string, err error)
}

// JWTVerifier checks HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses and validates the token, returning the subject identity.
// Every failure maps to UNAUTHENTICATED.
func (v *JWTVerifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", apperr.Wrap(apperr.CodeUnauthenticated, "invalid token", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperr.New(apperr.CodeUnauthenticated, "invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", apperr.New(apperr.CodeUnauthenticated, "token has no subject")
	}
	return sub, nil
}

// Mint issues a token for identity. Used by the development token endpoint
// and by tests; production tokens come from the auth service.
func (v *JWTVerifier) Mint(identity string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": identity,
		"iss": v.issuer,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
