// Package auth implements the identity verifier consumed by the signaling
// handshake: opaque token in, identity id out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/loquichat/loqui/internal/domain"
)

var (
	ErrTokenInvalid  = errors.New("token invalid or expired")
	ErrSecretTooWeak = errors.New("jwt secret must be at least 32 bytes")
)

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// JWTVerifier validates and issues HS256 tokens. It implements
// core.IdentityVerifier.
type JWTVerifier struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTVerifier(secret string, ttl time.Duration) (*JWTVerifier, error) {
	if len(secret) < 32 {
		return nil, ErrSecretTooWeak
	}
	return &JWTVerifier{secret: []byte(secret), ttl: ttl}, nil
}

// Verify parses the credential and returns the subject identity id.
// The caller still has to resolve the record: a valid token for a deleted
// account is not an admission.
func (v *JWTVerifier) Verify(_ context.Context, token string) (domain.IdentityID, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrTokenInvalid
	}
	if claims.UserID == "" {
		return "", ErrTokenInvalid
	}
	return domain.IdentityID(claims.UserID), nil
}

// Issue mints a signed token for a freshly authenticated identity.
func (v *JWTVerifier) Issue(id domain.IdentityID) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: string(id),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// TTL exposes the configured token lifetime for cookie max-age.
func (v *JWTVerifier) TTL() time.Duration { return v.ttl }
