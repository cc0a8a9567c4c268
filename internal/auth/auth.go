package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pixelmint/pixelmint/internal/config"
)

var (
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid_token")
)

// TokenVerifier resolves a bearer token to a user id. The HTTP layer depends
// on this interface only, so tests can plug in a stub.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type Claims struct {
	jwt.RegisteredClaims
}

type jwtVerifier struct {
	secret []byte
}

// NewVerifier builds an HS256 verifier from the configured shared secret.
// Tokens are issued by the identity provider; this side only validates.
func NewVerifier(cfg config.Config) (TokenVerifier, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	return &jwtVerifier{secret: []byte(cfg.JWTSecret)}, nil
}

func (v *jwtVerifier) Verify(_ context.Context, tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
