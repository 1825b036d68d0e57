package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const devSecret = "dev-secret"

// Claims represents the applicant identity contained in a session token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

var (
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Verifier signs and verifies HS256 tokens with a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier. An empty secret falls back to a fixed
// development secret only when allowDevSecret is set; callers pass
// Config.IsDevLike so every deployed environment needs JWT_SECRET.
func NewVerifier(secret string, allowDevSecret bool) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		if !allowDevSecret {
			return nil, fmt.Errorf("%w: JWT_SECRET required outside dev", ErrMissingSecret)
		}
		secret = devSecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Sign issues a token for the given claims. Missing iat/exp default to now
// and now+24h. Sessions are issued elsewhere; this service only calls Sign
// from tests and local tooling.
func (v *Verifier) Sign(claims Claims) (string, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("sub is required")
	}
	now := time.Now().UTC()
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(24 * time.Hour))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses and validates a token and returns its claims.
func (v *Verifier) Verify(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
