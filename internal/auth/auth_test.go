package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pixelmint/pixelmint/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, subject string, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	verifier, err := NewVerifier(config.Config{JWTSecret: "secret"})
	require.NoError(t, err)

	token := signToken(t, "secret", "user-42", time.Now().Add(time.Hour))
	userID, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	verifier, err := NewVerifier(config.Config{JWTSecret: "secret"})
	require.NoError(t, err)

	token := signToken(t, "secret", "user-42", time.Now().Add(-time.Hour))
	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	verifier, err := NewVerifier(config.Config{JWTSecret: "secret"})
	require.NoError(t, err)

	token := signToken(t, "other-secret", "user-42", time.Now().Add(time.Hour))
	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	verifier, err := NewVerifier(config.Config{JWTSecret: "secret"})
	require.NoError(t, err)

	token := signToken(t, "secret", "", time.Now().Add(time.Hour))
	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier(config.Config{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}
