// Package auth verifies bearer tokens and carries the caller's identity
// through the request context.
//
// Tokens are HS256-signed JWTs whose "sub" claim holds the user id. The
// signing secret comes from configuration; verification fails closed.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMissingToken indicates no bearer credential was supplied.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken indicates the credential failed verification.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Verifier validates bearer tokens using an HMAC secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier with the given signing secret.
func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("secret is required")
	}
	return &Verifier{secret: secret}, nil
}

// Verify parses and validates a token string and returns the user id from
// the "sub" claim.
func (v *Verifier) Verify(tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, fmt.Errorf("%w: no subject claim", ErrInvalidToken)
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a UUID", ErrInvalidToken)
	}

	return userID, nil
}

// Sign issues a token for the given user, valid for ttl.
// Used by tests and provisioning tooling; the server itself only verifies.
func (v *Verifier) Sign(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// BearerToken extracts the token from an Authorization header value.
// Returns ErrMissingToken when the header is absent or not a Bearer scheme.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

type contextKey int

const (
	userIDKey contextKey = iota
	tokenKey
)

// WithIdentity stores the authenticated user id and raw token in the context.
// The raw token is kept so downstream clients (the embedding function) can
// forward the caller's credential.
func WithIdentity(ctx context.Context, userID uuid.UUID, token string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, tokenKey, token)
}

// UserID returns the authenticated user id from the context.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// Token returns the raw bearer token from the context.
func Token(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok
}
